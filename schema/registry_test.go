package schema

import (
	"errors"
	"testing"

	"tpchjoin/errs"
	"tpchjoin/types"
)

func TestParseLineSplitsAndValidatesFieldCount(t *testing.T) {
	line := "1|Part 1|Mfgr#1|Brand#11|T|s|C|1000.5|c"
	rec, err := ParseLine("PART", line)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if len(rec.Fields) != 9 {
		t.Fatalf("got %d fields, want 9", len(rec.Fields))
	}
	if rec.Field(0) != "1" || rec.Field(1) != "Part 1" {
		t.Errorf("unexpected fields: %v", rec.Fields)
	}
}

func TestParseLineToleratesTrailingDelimiter(t *testing.T) {
	rec, err := ParseLine("REGION", "0|AFRICA|comment text|\n")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if len(rec.Fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(rec.Fields))
	}
}

func TestParseLineRejectsWrongFieldCount(t *testing.T) {
	_, err := ParseLine("REGION", "0|AFRICA")
	if !errors.Is(err, errs.ErrSchemaMismatch) {
		t.Errorf("got %v, want ErrSchemaMismatch", err)
	}
}

func TestParseLineRejectsUnknownTag(t *testing.T) {
	_, err := ParseLine("WIDGET", "a|b")
	if !errors.Is(err, errs.ErrSchemaMismatch) {
		t.Errorf("got %v, want ErrSchemaMismatch", err)
	}
}

func TestExtractIntKey(t *testing.T) {
	rec := types.NewRecord([]string{"42", "Part 42", "Mfgr#1", "Brand#11", "T", "s", "C", "1000.5", "c"})
	key, err := ExtractIntKey(rec, "PART", "partkey")
	if err != nil {
		t.Fatalf("ExtractIntKey: %v", err)
	}
	if key != 42 {
		t.Errorf("got %d, want 42", key)
	}
}

func TestExtractIntKeyStripsSupplierPrefix(t *testing.T) {
	rec := types.NewRecord([]string{"Supplier#000007", "Name", "Addr", "3", "phone", "100.0", "comment"})
	key, err := ExtractIntKey(rec, "SUPPLIER", "suppkey")
	if err != nil {
		t.Fatalf("ExtractIntKey: %v", err)
	}
	if key != 7 {
		t.Errorf("got %d, want 7", key)
	}
}

func TestExtractIntKeyUnknownField(t *testing.T) {
	rec := types.NewRecord([]string{"1", "AFRICA", "comment"})
	_, err := ExtractIntKey(rec, "REGION", "nope")
	if !errors.Is(err, errs.ErrSchemaMismatch) {
		t.Errorf("got %v, want ErrSchemaMismatch", err)
	}
}

func TestExtractIntKeyUnparseable(t *testing.T) {
	rec := types.NewRecord([]string{"1", "Name", "not-a-number", "comment"})
	_, err := ExtractIntKey(rec, "NATION", "regionkey")
	if !errors.Is(err, errs.ErrKeyParse) {
		t.Errorf("got %v, want ErrKeyParse", err)
	}
}
