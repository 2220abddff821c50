package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"tpchjoin/blockio"
	"tpchjoin/pagecodec"
	"tpchjoin/stats"
)

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	for _, l := range lines {
		fmt.Fprintln(f, l)
	}
}

func TestConvertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "part.tbl")
	output := filepath.Join(dir, "part.dat")

	var lines []string
	for i := 1; i <= 100; i++ {
		suppkey := (i % 50) + 1
		lines = append(lines, fmt.Sprintf("%d|Part %d|Mfgr#1|Brand#11|T|%d|C|1000.5|c", i, i, suppkey))
	}
	writeLines(t, input, lines)

	var st stats.Statistics
	if err := Convert(nil, input, output, "PART", 4096, &st); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	reader, err := blockio.NewTableReader(output, 4096, &st)
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
			if r.Field(0) != fmt.Sprintf("%d", total) {
				t.Fatalf("record %d field 0 = %q, want %q", total, r.Field(0), fmt.Sprintf("%d", total))
			}
		}
	}
	if total != 100 {
		t.Errorf("total records = %d, want 100", total)
	}
}

func TestConvertSkipsUnparseableLines(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "region.tbl")
	output := filepath.Join(dir, "region.dat")

	writeLines(t, input, []string{
		"0|AFRICA|lorem",
		"bad line with too few fields",
		"1|AMERICA|ipsum",
	})

	if err := Convert(nil, input, output, "REGION", 4096, nil); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	reader, err := blockio.NewTableReader(output, 4096, nil)
	if err != nil {
		t.Fatalf("NewTableReader: %v", err)
	}
	defer reader.Close()

	page, ok, err := reader.ReadBlock()
	if err != nil || !ok {
		t.Fatalf("ReadBlock: ok=%v err=%v", ok, err)
	}
	recs, err := pagecodec.All(page)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2 (bad line skipped)", len(recs))
	}
}

func TestConvertUnknownTag(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "x.tbl")
	writeLines(t, input, []string{"a|b"})

	err := Convert(nil, input, filepath.Join(dir, "x.dat"), "WIDGET", 4096, nil)
	if err == nil {
		t.Errorf("expected error for unknown tag")
	}
}
