package extsort

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"tpchjoin/blockio"
	"tpchjoin/pagecodec"
	"tpchjoin/schema"
	"tpchjoin/stats"
	"tpchjoin/types"
)

func writeUnsortedPartTable(t *testing.T, path string, n int) {
	t.Helper()
	writer, err := blockio.NewTableWriter(path, nil)
	if err != nil {
		t.Fatalf("NewTableWriter: %v", err)
	}
	defer writer.Close()

	page := pagecodec.NewPage(256)
	for i := n; i >= 1; i-- { // descending, so sort actually has work to do
		rec := types.NewRecord([]string{fmt.Sprintf("%d", i), fmt.Sprintf("Part %d", i), "Mfgr#1", "Brand#11", "T", "1", "C", "1.0", "c"})
		if pagecodec.Append(page, rec) {
			continue
		}
		writer.WriteBlock(page)
		pagecodec.Clear(page)
		pagecodec.Append(page, rec)
	}
	writer.WriteBlock(page)
}

func readAllKeys(t *testing.T, path string) []int {
	t.Helper()
	reader, err := blockio.NewTableReader(path, 256, nil)
	if err != nil {
		t.Fatalf("NewTableReader: %v", err)
	}
	defer reader.Close()

	var keys []int
	for {
		page, ok, err := reader.ReadBlock()
		if err != nil {
			t.Fatalf("ReadBlock: %v", err)
		}
		if !ok {
			break
		}
		recs, err := pagecodec.All(page)
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		for _, rec := range recs {
			k, err := schema.ExtractIntKey(rec, "PART", "partkey")
			if err != nil {
				t.Fatalf("ExtractIntKey: %v", err)
			}
			keys = append(keys, k)
		}
	}
	return keys
}

func TestSortProducesMonotoneOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "part.dat")
	output := filepath.Join(dir, "part.sorted")
	writeUnsortedPartTable(t, input, 50)

	var st stats.Statistics
	if err := Sort(input, output, "PART", "partkey", Params{BufferSize: 2, BlockSize: 256}, &st); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	keys := readAllKeys(t, output)
	if len(keys) != 50 {
		t.Fatalf("got %d keys, want 50", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("not monotone at %d: %d > %d", i, keys[i-1], keys[i])
		}
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.run*"))
	if len(matches) != 0 {
		t.Errorf("leftover run files: %v", matches)
	}
}

func TestSortKWayMatchesPairwise(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "part.dat")
	outputPairwise := filepath.Join(dir, "pairwise.sorted")
	outputKWay := filepath.Join(dir, "kway.sorted")
	writeUnsortedPartTable(t, input, 37)

	if err := Sort(input, outputPairwise, "PART", "partkey", Params{BufferSize: 2, BlockSize: 256}, nil); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if err := SortKWay(input, outputKWay, "PART", "partkey", Params{BufferSize: 2, BlockSize: 256}, nil); err != nil {
		t.Fatalf("SortKWay: %v", err)
	}

	a := readAllKeys(t, outputPairwise)
	b := readAllKeys(t, outputKWay)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("index %d: pairwise=%d kway=%d", i, a[i], b[i])
		}
	}
}

func TestSortEmptyInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.dat")
	output := filepath.Join(dir, "empty.sorted")
	if f, err := os.Create(input); err != nil {
		t.Fatalf("create: %v", err)
	} else {
		f.Close()
	}

	if err := Sort(input, output, "PART", "partkey", Params{BufferSize: 2, BlockSize: 256}, nil); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if keys := readAllKeys(t, output); len(keys) != 0 {
		t.Errorf("got %d keys, want 0", len(keys))
	}
}
