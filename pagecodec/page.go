// Package pagecodec implements C1: the self-describing page layout and
// the slot directory that packs variable-length records without
// fragmentation. It is grounded in the teacher's slotted-page
// implementation (storage_engine/access/heapfile_manager/heap_page.go),
// generalized from a fixed 29-byte LSN-carrying header to the plain
// record_count/used_bytes/checksum header this spec calls for, and from
// 2-byte offset/length slots to the spec's 4-byte ones (tables can then
// exceed 64KiB of live data per page).
package pagecodec

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"tpchjoin/types"
)

// Page is a fixed-size byte buffer divided into header, record heap
// (growing up from HeaderSize), and slot directory (growing down from
// the end), as specified in SPEC_FULL §3.
type Page struct {
	Data []byte
}

// NewPage allocates a zeroed page of the given size and stamps an empty
// header into it.
func NewPage(size int) *Page {
	p := &Page{Data: make([]byte, size)}
	Clear(p)
	return p
}

// Size returns the page's physical byte size.
func (p *Page) Size() int {
	return len(p.Data)
}

// header field offsets, within the fixed types.HeaderSize-byte header.
const (
	offRecordCount = 0 // u32
	offUsedBytes   = 4 // u32
	offChecksum    = 8 // u64
)

func recordCount(p *Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[offRecordCount:])
}

func setRecordCount(p *Page, n uint32) {
	binary.LittleEndian.PutUint32(p.Data[offRecordCount:], n)
}

// UsedBytes is the authoritative count of live payload bytes: heap_used
// plus the slot directory (record_count*SlotSize), NOT counting the
// header. Per SPEC_FULL §4.3's "Note on asymmetry", this is what a
// reader must trust — not however many physical bytes a read
// transferred. It satisfies §3's "record_count·8 + heap_used ≤
// payload_size" directly: UsedBytes() ≤ payloadSize(p) always.
func UsedBytes(p *Page) uint32 {
	return binary.LittleEndian.Uint32(p.Data[offUsedBytes:])
}

func setUsedBytes(p *Page, n uint32) {
	binary.LittleEndian.PutUint32(p.Data[offUsedBytes:], n)
}

func storedChecksum(p *Page) uint64 {
	return binary.LittleEndian.Uint64(p.Data[offChecksum:])
}

func setChecksum(p *Page, sum uint64) {
	binary.LittleEndian.PutUint64(p.Data[offChecksum:], sum)
}

// heapEndOffset returns the absolute byte offset, from the start of the
// page, one past the last live heap byte. The heap and the slot
// directory both grow as records are appended, so this shifts forward
// on every Append even though the slot directory's own start (counted
// from the page end) also shifts — see slotDirStartOffset.
func heapEndOffset(p *Page) int {
	return types.HeaderSize + int(UsedBytes(p)) - int(recordCount(p))*types.SlotSize
}

// slotDirStartOffset returns the absolute byte offset of the first live
// slot directory entry (the highest-indexed slot, since the directory
// grows downward from the page end).
func slotDirStartOffset(p *Page) int {
	return len(p.Data) - int(recordCount(p))*types.SlotSize
}

// computeChecksum hashes the live heap and the live slot directory —
// the two regions UsedBytes accounts for — skipping the gap between
// them. Trailing zero padding up to PageSize, and the unused middle gap
// on a partially-filled page, are never hashed, so padding a
// partially-filled last page (§3's "Table file" invariant) never trips
// CorruptPage.
func computeChecksum(p *Page) uint64 {
	h := xxhash.New()
	h.Write(p.Data[types.HeaderSize:heapEndOffset(p)])
	h.Write(p.Data[slotDirStartOffset(p):])
	return h.Sum64()
}

// stampChecksum recomputes and writes the checksum after any mutation
// that changes the heap or slot directory.
func stampChecksum(p *Page) {
	setChecksum(p, computeChecksum(p))
}

// VerifyChecksum reports whether the page's stored checksum matches its
// current contents. ExpandFromRead (called by block I/O after every
// read) uses this to detect corruption before handing the page out.
func VerifyChecksum(p *Page) bool {
	return storedChecksum(p) == computeChecksum(p)
}

// Clear resets record_count and used_bytes to zero, as SPEC_FULL §4.1
// requires, and restamps the checksum over the now-empty page.
func Clear(p *Page) {
	setRecordCount(p, 0)
	setUsedBytes(p, 0)
	stampChecksum(p)
}

// IsEmpty reports whether the page holds zero records.
func IsEmpty(p *Page) bool {
	return recordCount(p) == 0
}

// UsedSize is an alias for UsedBytes with the naming SPEC_FULL §4.1 uses.
func UsedSize(p *Page) uint32 {
	return UsedBytes(p)
}

func payloadSize(p *Page) int {
	return len(p.Data) - types.HeaderSize
}

// slotOffset returns the byte offset of slot i's 8-byte entry, counting
// down from the end of the page: slot 0 is the last 8 bytes, slot 1 the
// 8 before that, and so on — mirroring the teacher's downward-growing
// slot directory, just with 4-byte fields instead of 2-byte ones.
func slotOffset(p *Page, i int) int {
	return len(p.Data) - (i+1)*types.SlotSize
}

func readSlot(p *Page, i int) (offset, length uint32) {
	base := slotOffset(p, i)
	return binary.LittleEndian.Uint32(p.Data[base:]),
		binary.LittleEndian.Uint32(p.Data[base+4:])
}

func writeSlot(p *Page, i int, offset, length uint32) {
	base := slotOffset(p, i)
	binary.LittleEndian.PutUint32(p.Data[base:], offset)
	binary.LittleEndian.PutUint32(p.Data[base+4:], length)
}
