package pagecodec

import (
	"tpchjoin/types"
)

// Append serializes record onto the heap end and appends a new slot
// pointing at it. It returns false — leaving the page byte-for-byte
// unchanged — when the remaining free space cannot hold the record plus
// its slot entry; the caller is expected to flush and retry once
// (SPEC_FULL §4.1, §4.6 emit policy).
func Append(p *Page, record types.Record) bool {
	encoded := encodeRecord(record)
	need := len(encoded) + types.SlotSize
	free := payloadSize(p) - int(UsedBytes(p))
	if free < need {
		return false
	}

	slotCount := int(recordCount(p))
	heapEnd := heapEndOffset(p)

	copy(p.Data[heapEnd:], encoded)
	writeSlot(p, slotCount, uint32(heapEnd), uint32(len(encoded)))

	setRecordCount(p, uint32(slotCount+1))
	setUsedBytes(p, UsedBytes(p)+uint32(len(encoded))+uint32(types.SlotSize))
	stampChecksum(p)
	return true
}

// Iterator is a restartable, forward-only cursor over a page's records
// in insertion order. It never mutates the page.
type Iterator struct {
	page *Page
	next int
}

// Iterate constructs a fresh iterator positioned at slot 0.
func Iterate(p *Page) *Iterator {
	return &Iterator{page: p, next: 0}
}

// ResetIterator rewinds it to slot 0 (SPEC_FULL §4.1's reset_iterator).
func ResetIterator(it *Iterator) {
	it.next = 0
}

// Next returns the next decoded record, or ok=false once every slot has
// been visited. A slot whose offset+length falls outside the heap
// yields an error wrapping errs.ErrCorruptPage.
func (it *Iterator) Next() (rec types.Record, ok bool, err error) {
	if it.next >= int(recordCount(it.page)) {
		return types.Record{}, false, nil
	}
	offset, length := readSlot(it.page, it.next)
	heapLimit := uint32(heapEndOffset(it.page))
	if offset < types.HeaderSize || uint64(offset)+uint64(length) > uint64(heapLimit) {
		return types.Record{}, false, errCorrupt("slot points outside heap")
	}
	rec, err = decodeRecord(it.page.Data[offset : offset+length])
	if err != nil {
		return types.Record{}, false, err
	}
	it.next++
	return rec, true, nil
}

// All drains the iterator into a slice, for call sites that need every
// record materialized at once (e.g. the BNLJ outer block window).
func All(p *Page) ([]types.Record, error) {
	it := Iterate(p)
	var out []types.Record
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rec)
	}
}
