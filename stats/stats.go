// Package stats implements C10: the passive statistics counter carried
// by reference through block I/O and the executors. It is grounded in
// the teacher's BufferPoolStats (storage_engine/bufferpool/helpers.go)
// generalized from a cache-hit snapshot into the additive, mutate-in-
// place counters SPEC_FULL §4.10 specifies.
package stats

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Statistics is mutated only by I/O components (BlockReads/BlockWrites)
// and by executor prologue/epilogue (the rest). It carries no mutex:
// the spec assigns one Statistics per executor invocation, owned by the
// caller, never shared across goroutines.
type Statistics struct {
	BlockReads       int64
	BlockWrites      int64
	OutputRecords    int64
	ElapsedSeconds   float64
	MemoryUsageBytes int64
}

// AddBlockRead increments the page-read counter by one successful
// transfer.
func (s *Statistics) AddBlockRead() {
	s.BlockReads++
}

// AddBlockWrite increments the page-write counter by one successful
// transfer.
func (s *Statistics) AddBlockWrite() {
	s.BlockWrites++
}

// AddOutputRecords increments the output-record counter by n, one call
// per executor emission.
func (s *Statistics) AddOutputRecords(n int64) {
	s.OutputRecords += n
}

// Time runs fn and adds its wall-clock duration to ElapsedSeconds,
// matching §4.10's "set by each executor around its top-level call".
func (s *Statistics) Time(fn func() error) error {
	start := time.Now()
	err := fn()
	s.ElapsedSeconds += time.Since(start).Seconds()
	return err
}

// String renders the counters for CLI reporting, using humanize for
// the byte count the way SPEC_FULL's ambient stack calls for.
func (s Statistics) String() string {
	return fmt.Sprintf(
		"reads=%d writes=%d output=%d elapsed=%.3fs mem=%s",
		s.BlockReads, s.BlockWrites, s.OutputRecords, s.ElapsedSeconds,
		humanize.Bytes(uint64(s.MemoryUsageBytes)),
	)
}
