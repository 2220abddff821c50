package pagecodec

import (
	"testing"

	"tpchjoin/types"
)

func TestAppendAndIterateRoundTrip(t *testing.T) {
	p := NewPage(256)

	rows := [][]string{
		{"1", "Alice", "20"},
		{"2", "Bob", "21"},
		{"3", "Charlie", "22"},
	}

	for _, fields := range rows {
		if !Append(p, types.NewRecord(fields)) {
			t.Fatalf("append of %v unexpectedly failed", fields)
		}
	}

	got, err := All(p)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("got %d records, want %d", len(got), len(rows))
	}
	for i, rec := range got {
		for j, f := range rec.Fields {
			if f != rows[i][j] {
				t.Errorf("record %d field %d: got %q want %q", i, j, f, rows[i][j])
			}
		}
	}
}

func TestAppendReturnsFalseWhenFull(t *testing.T) {
	p := NewPage(64)

	count := 0
	for Append(p, types.NewRecord([]string{"x"})) {
		count++
	}
	if count == 0 {
		t.Fatalf("expected at least one record to fit in a 64-byte page")
	}

	got, err := All(p)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != count {
		t.Fatalf("iterated %d records, appended %d", len(got), count)
	}
}

func TestClearResetsUsedBytes(t *testing.T) {
	p := NewPage(128)
	Append(p, types.NewRecord([]string{"a", "b"}))
	if UsedBytes(p) == 0 {
		t.Fatalf("expected UsedBytes > 0 after append")
	}
	Clear(p)
	if UsedBytes(p) != 0 {
		t.Errorf("UsedBytes after Clear = %d, want 0", UsedBytes(p))
	}
	if !IsEmpty(p) {
		t.Errorf("IsEmpty after Clear = false, want true")
	}
	if !VerifyChecksum(p) {
		t.Errorf("checksum invalid after Clear")
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	p := NewPage(128)
	Append(p, types.NewRecord([]string{"one", "two"}))

	if !VerifyChecksum(p) {
		t.Fatalf("checksum should verify before corruption")
	}

	p.Data[types.HeaderSize] ^= 0xFF
	if VerifyChecksum(p) {
		t.Errorf("checksum should fail to verify after flipping a heap byte")
	}
}

func TestCompactForWriteThenExpandFromReadRoundTrip(t *testing.T) {
	p := NewPage(256)
	for _, fields := range [][]string{
		{"10", "Supplier A"},
		{"20", "Supplier B"},
		{"30", "Supplier C"},
	} {
		if !Append(p, types.NewRecord(fields)) {
			t.Fatalf("append of %v unexpectedly failed", fields)
		}
	}

	wire := CompactForWrite(p)
	if len(wire) != types.HeaderSize+int(UsedBytes(p)) {
		t.Fatalf("compacted size = %d, want %d", len(wire), types.HeaderSize+int(UsedBytes(p)))
	}

	expanded, err := ExpandFromRead(wire, p.Size())
	if err != nil {
		t.Fatalf("ExpandFromRead: %v", err)
	}

	got, err := All(expanded)
	if err != nil {
		t.Fatalf("All(expanded): %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records after expand, want 3", len(got))
	}
	if got[1].Fields[1] != "Supplier B" {
		t.Errorf("got %q, want %q", got[1].Fields[1], "Supplier B")
	}
}

func TestExpandFromReadRejectsInconsistentHeader(t *testing.T) {
	p := NewPage(128)
	Append(p, types.NewRecord([]string{"a"}))
	wire := CompactForWrite(p)

	// Corrupt used_bytes so it disagrees with record_count.
	wire[offUsedBytes] = 0xFF

	if _, err := ExpandFromRead(wire, p.Size()); err == nil {
		t.Errorf("expected ExpandFromRead to reject an inconsistent header")
	}
}
