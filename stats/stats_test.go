package stats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountersAreAdditive(t *testing.T) {
	var s Statistics
	s.AddBlockRead()
	s.AddBlockRead()
	s.AddBlockWrite()
	s.AddOutputRecords(7)

	require.EqualValues(t, 2, s.BlockReads)
	require.EqualValues(t, 1, s.BlockWrites)
	require.EqualValues(t, 7, s.OutputRecords)
}

func TestTimeAccumulatesAndPropagatesError(t *testing.T) {
	var s Statistics
	want := errors.New("boom")
	err := s.Time(func() error { return want })
	require.Equal(t, want, err)
	require.GreaterOrEqual(t, s.ElapsedSeconds, 0.0)
}

func TestStringIncludesHumanizedMemory(t *testing.T) {
	s := Statistics{BlockReads: 3, MemoryUsageBytes: 2048}
	require.NotEmpty(t, s.String())
	require.Contains(t, s.String(), "mem=2.0 kB")
}
