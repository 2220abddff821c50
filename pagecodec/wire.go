package pagecodec

import (
	"encoding/binary"

	"tpchjoin/types"
)

// CompactForWrite produces the on-disk form of p: the header, followed
// by the live heap bytes, followed immediately by the live slot
// directory — with the unused gap between heap and slot directory that
// the in-memory gapped layout carries for O(1) append dropped.
//
// This is what lets block I/O honor §4.3's "writes page.used_bytes
// bytes, not the full page": the writer always emits exactly
// HeaderSize+UsedBytes bytes for every page, so a table file is a
// sequence of variable-length blocks and its size is in general not a
// multiple of page_size. The reader (ExpandFromRead) knows from the
// header alone how many of those bytes are heap and how many are slot
// directory, so it can rebuild the gapped layout without ever trusting
// the transfer count.
func CompactForWrite(p *Page) []byte {
	used := int(UsedBytes(p))
	out := make([]byte, types.HeaderSize+used)
	copy(out, p.Data[:types.HeaderSize])

	heapUsed := heapEndOffset(p) - types.HeaderSize
	copy(out[types.HeaderSize:], p.Data[types.HeaderSize:heapEndOffset(p)])
	copy(out[types.HeaderSize+heapUsed:], p.Data[slotDirStartOffset(p):])
	return out
}

// ExpandFromRead rebuilds a gapped in-memory Page of pageSize bytes
// from the compacted bytes a block read produced. It re-derives
// used_bytes and record_count from the header fields inside buf, never
// from len(buf), per §4.3's "Note on asymmetry".
func ExpandFromRead(buf []byte, pageSize int) (*Page, error) {
	recCount, used, err := HeaderFields(buf)
	if err != nil {
		return nil, err
	}
	slotBytes := int(recCount) * types.SlotSize
	heapUsed := int(used) - slotBytes
	if heapUsed < 0 || types.HeaderSize+int(used) > len(buf) {
		return nil, errCorrupt("used_bytes inconsistent with record_count")
	}

	p := &Page{Data: make([]byte, pageSize)}
	copy(p.Data[:types.HeaderSize], buf[:types.HeaderSize])
	copy(p.Data[types.HeaderSize:types.HeaderSize+heapUsed], buf[types.HeaderSize:types.HeaderSize+heapUsed])
	copy(p.Data[len(p.Data)-slotBytes:], buf[types.HeaderSize+heapUsed:types.HeaderSize+int(used)])

	if !VerifyChecksum(p) {
		return nil, errCorrupt("checksum mismatch")
	}
	return p, nil
}

// HeaderFields reads record_count and used_bytes straight out of a raw
// header without touching the checksum or heap. blockio uses it to learn
// how many more bytes a block's body needs before it can hand the full
// wire form to ExpandFromRead.
func HeaderFields(buf []byte) (recordCount, usedBytes uint32, err error) {
	if len(buf) < types.HeaderSize {
		return 0, 0, errCorrupt("page shorter than header")
	}
	return binary.LittleEndian.Uint32(buf[offRecordCount:]), binary.LittleEndian.Uint32(buf[offUsedBytes:]), nil
}
