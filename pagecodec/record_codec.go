package pagecodec

import (
	"encoding/binary"

	"tpchjoin/types"
)

// encodeRecord serializes a Record as field_count(u32) followed by each
// field as field_len(u32) + raw bytes, per SPEC_FULL §3.
func encodeRecord(rec types.Record) []byte {
	size := 4
	for _, f := range rec.Fields {
		size += 4 + len(f)
	}
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(rec.Fields)))
	off += 4
	for _, f := range rec.Fields {
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(f)))
		off += 4
		copy(buf[off:], f)
		off += len(f)
	}
	return buf
}

// decodeRecord parses the encodeRecord layout out of data. It returns an
// error wrapping errs.ErrCorruptPage if a field length would run past
// the end of data.
func decodeRecord(data []byte) (types.Record, error) {
	if len(data) < 4 {
		return types.Record{}, errCorrupt("record header truncated")
	}
	fieldCount := binary.LittleEndian.Uint32(data)
	off := 4
	fields := make([]string, 0, fieldCount)
	for i := uint32(0); i < fieldCount; i++ {
		if off+4 > len(data) {
			return types.Record{}, errCorrupt("field length truncated")
		}
		flen := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if flen < 0 || off+flen > len(data) {
			return types.Record{}, errCorrupt("field body truncated")
		}
		fields = append(fields, string(data[off:off+flen]))
		off += flen
	}
	return types.Record{Fields: fields}, nil
}
