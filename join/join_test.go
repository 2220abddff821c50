package join

import (
	"fmt"
	"path/filepath"
	"testing"

	"tpchjoin/blockio"
	"tpchjoin/pagecodec"
	"tpchjoin/stats"
	"tpchjoin/types"
)

// buildPartAndPartsuppTables writes PART (partkey 1..n) and PARTSUPP
// (partkey 1..n x suppkey 1..4), mirroring spec.md's S2 seed scenario.
func buildPartAndPartsuppTables(t *testing.T, dir string, n int) (partPath, partsuppPath string) {
	t.Helper()
	partPath = filepath.Join(dir, "part.dat")
	partsuppPath = filepath.Join(dir, "partsupp.dat")

	pw, err := blockio.NewTableWriter(partPath, nil)
	if err != nil {
		t.Fatalf("NewTableWriter(part): %v", err)
	}
	ppage := pagecodec.NewPage(512)
	for i := 1; i <= n; i++ {
		rec := types.NewRecord([]string{fmt.Sprintf("%d", i), fmt.Sprintf("Part %d", i), "Mfgr#1", "Brand#11", "T", "1", "C", "1.0", "c"})
		if !pagecodec.Append(ppage, rec) {
			pw.WriteBlock(ppage)
			pagecodec.Clear(ppage)
			pagecodec.Append(ppage, rec)
		}
	}
	pw.WriteBlock(ppage)
	pw.Close()

	sw, err := blockio.NewTableWriter(partsuppPath, nil)
	if err != nil {
		t.Fatalf("NewTableWriter(partsupp): %v", err)
	}
	spage := pagecodec.NewPage(512)
	for i := 1; i <= n; i++ {
		for s := 1; s <= 4; s++ {
			rec := types.NewRecord([]string{fmt.Sprintf("%d", i), fmt.Sprintf("%d", s), "100", "10.5", "c"})
			if !pagecodec.Append(spage, rec) {
				sw.WriteBlock(spage)
				pagecodec.Clear(spage)
				pagecodec.Append(spage, rec)
			}
		}
	}
	sw.WriteBlock(spage)
	sw.Close()

	return partPath, partsuppPath
}

func countAndValidateOutput(t *testing.T, path string, checkKeyMatch bool) int {
	t.Helper()
	reader, err := blockio.NewTableReader(path, 512, nil)
	if err != nil {
		t.Fatalf("NewTableReader: %v", err)
	}
	defer reader.Close()

	total := 0
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
		for _, r := range recs {
			total++
			if checkKeyMatch && r.Field(0) != r.Field(9) {
				t.Errorf("row %d: field[0]=%q field[9]=%q", total, r.Field(0), r.Field(9))
			}
		}
	}
	return total
}

func TestBNLJMatchesSeedS2(t *testing.T) {
	dir := t.TempDir()
	partPath, partsuppPath := buildPartAndPartsuppTables(t, dir, 20)
	output := filepath.Join(dir, "bnlj.out")

	outer := TwoTableInput{Path: partPath, Tag: "PART", Key: "partkey"}
	innerIn := TwoTableInput{Path: partsuppPath, Tag: "PARTSUPP", Key: "partkey"}

	var st stats.Statistics
	if err := BNLJ(nil, outer, innerIn, output, BNLJParams{BufferSize: 3, BlockSize: 512}, &st); err != nil {
		t.Fatalf("BNLJ: %v", err)
	}

	got := countAndValidateOutput(t, output, true)
	if want := 20 * 4; got != want {
		t.Errorf("got %d output records, want %d", got, want)
	}
}

func TestHashJoinMatchesBNLJ(t *testing.T) {
	dir := t.TempDir()
	partPath, partsuppPath := buildPartAndPartsuppTables(t, dir, 15)

	bnljOut := filepath.Join(dir, "bnlj.out")
	hashOut := filepath.Join(dir, "hash.out")

	outer := TwoTableInput{Path: partPath, Tag: "PART", Key: "partkey"}
	innerIn := TwoTableInput{Path: partsuppPath, Tag: "PARTSUPP", Key: "partkey"}

	if err := BNLJ(nil, outer, innerIn, bnljOut, BNLJParams{BufferSize: 3, BlockSize: 512}, nil); err != nil {
		t.Fatalf("BNLJ: %v", err)
	}
	if err := HashJoin(nil, outer, innerIn, hashOut, HashJoinParams{BlockSize: 512}, nil); err != nil {
		t.Fatalf("HashJoin: %v", err)
	}

	bnljCount := countAndValidateOutput(t, bnljOut, false)
	hashCount := countAndValidateOutput(t, hashOut, false)
	if bnljCount != hashCount {
		t.Errorf("BNLJ produced %d records, HashJoin produced %d", bnljCount, hashCount)
	}
}

func TestSortMergeMatchesBNLJ(t *testing.T) {
	dir := t.TempDir()
	partPath, partsuppPath := buildPartAndPartsuppTables(t, dir, 12)

	bnljOut := filepath.Join(dir, "bnlj.out")
	smOut := filepath.Join(dir, "sm.out")

	outer := TwoTableInput{Path: partPath, Tag: "PART", Key: "partkey"}
	innerIn := TwoTableInput{Path: partsuppPath, Tag: "PARTSUPP", Key: "partkey"}

	if err := BNLJ(nil, outer, innerIn, bnljOut, BNLJParams{BufferSize: 3, BlockSize: 512}, nil); err != nil {
		t.Fatalf("BNLJ: %v", err)
	}
	if err := SortMerge(nil, outer, innerIn, smOut, SortMergeParams{BufferSize: 2, BlockSize: 512}, nil); err != nil {
		t.Fatalf("SortMerge: %v", err)
	}

	bnljCount := countAndValidateOutput(t, bnljOut, false)
	smCount := countAndValidateOutput(t, smOut, false)
	if bnljCount != smCount {
		t.Errorf("BNLJ produced %d records, SortMerge produced %d", bnljCount, smCount)
	}

	matches, _ := filepath.Glob(smOut + ".sorted_*")
	if len(matches) != 0 {
		t.Errorf("leftover sorted temp files: %v", matches)
	}
}

func TestBNLJEmptyOuterProducesNoOutput(t *testing.T) {
	dir := t.TempDir()
	emptyOuter := filepath.Join(dir, "empty.dat")
	w, _ := blockio.NewTableWriter(emptyOuter, nil)
	w.Close()

	_, partsuppPath := buildPartAndPartsuppTables(t, dir, 5)
	output := filepath.Join(dir, "bnlj.out")

	outer := TwoTableInput{Path: emptyOuter, Tag: "PART", Key: "partkey"}
	innerIn := TwoTableInput{Path: partsuppPath, Tag: "PARTSUPP", Key: "partkey"}

	if err := BNLJ(nil, outer, innerIn, output, BNLJParams{BufferSize: 3, BlockSize: 512}, nil); err != nil {
		t.Fatalf("BNLJ: %v", err)
	}
	if got := countAndValidateOutput(t, output, false); got != 0 {
		t.Errorf("got %d output records, want 0", got)
	}
}

func TestBNLJRejectsBufferSizeBelowTwo(t *testing.T) {
	dir := t.TempDir()
	partPath, partsuppPath := buildPartAndPartsuppTables(t, dir, 1)
	outer := TwoTableInput{Path: partPath, Tag: "PART", Key: "partkey"}
	innerIn := TwoTableInput{Path: partsuppPath, Tag: "PARTSUPP", Key: "partkey"}

	err := BNLJ(nil, outer, innerIn, filepath.Join(dir, "out.dat"), BNLJParams{BufferSize: 1, BlockSize: 512}, nil)
	if err == nil {
		t.Errorf("expected error for buffer size < 2")
	}
}
