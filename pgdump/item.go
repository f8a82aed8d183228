package pgdump

import "fmt"

// HeapTupleHeader mirrors HeapTupleHeaderData (storage/htup_details.h),
// minus the fields (t_ctid, t_field3) this inspector has no use for.
type HeapTupleHeader struct {
	Xmin          uint32
	Xmax          uint32
	InfoMask2     uint16
	InfoMask      uint16
	Hoff          uint8
	NAtts         int
	HasNull       bool
	HasVarWidth   bool
	HasExternal   bool
	XminCommitted bool
	XminInvalid   bool
	XmaxCommitted bool
	XmaxInvalid   bool
	XmaxIsMulti   bool
	HotUpdated    bool
	HeapOnly      bool
}

// Infomask bits (HEAP_* in htup_details.h).
const (
	heapHasNull       = 0x0001
	heapHasVarWidth   = 0x0002
	heapHasExternal   = 0x0004
	heapXminCommitted = 0x0100
	heapXminInvalid   = 0x0200
	heapXmaxCommitted = 0x0400
	heapXmaxInvalid   = 0x0800
	heapXmaxIsMulti   = 0x1000
)

const (
	heapNattsMask  = 0x07FF
	heapHotUpdated = 0x4000
	heapOnlyTuple  = 0x8000
)

// HeapTupleData is a parsed heap tuple: header, null bitmap and the
// attribute bytes that start at t_hoff.
type HeapTupleData struct {
	Header *HeapTupleHeader
	Bitmap []byte // present only when HasNull
	Data   []byte // attribute bytes, starting at t_hoff
	Raw    []byte // the whole on-page tuple, header included
}

// IsNull reports whether the attnum'th attribute (1-based) is NULL
// according to the tuple's null bitmap.
func (t *HeapTupleData) IsNull(attnum int) bool {
	if t.Header == nil || !t.Header.HasNull || t.Bitmap == nil {
		return false
	}
	byteIdx := (attnum - 1) / 8
	bitIdx := uint((attnum - 1) % 8)
	if byteIdx >= len(t.Bitmap) {
		return false
	}
	return t.Bitmap[byteIdx]&(1<<bitIdx) == 0
}

// IsVisible applies the same coarse visibility heuristic pg_filedump uses
// for its default (non -y/-x) display: a tuple whose xmax is committed and
// not marked invalid has been deleted.
func (t *HeapTupleData) IsVisible() bool {
	if t.Header == nil {
		return true
	}
	return !(t.Header.XmaxCommitted && !t.Header.XmaxInvalid)
}

func parseHeapTupleHeader(data []byte) *HeapTupleHeader {
	if len(data) < 23 {
		return nil
	}
	infomask2 := u16(data, 18)
	infomask := u16(data, 20)
	h := &HeapTupleHeader{
		Xmin:      u32(data, 0),
		Xmax:      u32(data, 4),
		InfoMask2: infomask2,
		InfoMask:  infomask,
		Hoff:      data[22],
		NAtts:     int(infomask2 & heapNattsMask),
	}
	h.HasNull = infomask&heapHasNull != 0
	h.HasVarWidth = infomask&heapHasVarWidth != 0
	h.HasExternal = infomask&heapHasExternal != 0
	h.XminCommitted = infomask&heapXminCommitted != 0
	h.XminInvalid = infomask&heapXminInvalid != 0
	h.XmaxCommitted = infomask&heapXmaxCommitted != 0
	h.XmaxInvalid = infomask&heapXmaxInvalid != 0
	h.XmaxIsMulti = infomask&heapXmaxIsMulti != 0
	h.HotUpdated = infomask2&heapHotUpdated != 0
	h.HeapOnly = infomask2&heapOnlyTuple != 0
	return h
}

// TupleEntry pairs a decoded heap tuple with where it was found.
type TupleEntry struct {
	PageOffset int // byte offset of the containing page within the file
	ItemOffset int // offset of the line pointer's slot within the page
	ItemIndex  int
	LinePtr    ItemId
	Tuple      *HeapTupleData
	Item       *Item // non-nil for non-heap item interpretations
	Err        error
}

// ItemInterpretation selects how FormatItem-equivalent rendering treats
// the bytes an item points at, matching the -x/-y/SPG_INNER/SPG_LEAF
// switches of the original tool (spec component D).
type ItemInterpretation int

const (
	ItemAsHeap ItemInterpretation = iota
	ItemAsIndex
	ItemAsSpgInner
	ItemAsSpgLeaf
)

// Item is the generic, access-method-aware rendering of one line pointer's
// payload: an index tuple or an SP-GiST inner/leaf tuple. Heap tuples use
// HeapTupleData directly instead. InterpretItem has no GIN mode and never
// fills GinPostings; DecodeGinPostingList is a separate function over a
// posting list's bytes.
type Item struct {
	Kind        string // "index", "spgist-inner", "spgist-leaf"
	Size        int
	IndexTuple  *IndexTupleData
	SpgInner    *SpgInnerTuple
	SpgLeaf     *SpgLeafTuple
	GinPostings []GinPosting
}

// IndexTupleData mirrors IndexTupleData (access/itup.h): a TID plus an
// opaque key payload whose layout depends on the index's opclasses.
type IndexTupleData struct {
	BlockNumber uint32
	OffsetNum   uint16
	Size        int
	HasNulls    bool
	HasVarwidth bool
	Key         []byte
}

const (
	indexSizeMask = 0x1FFF
	indexVarMask  = 0x4000
	indexNullMask = 0x8000
)

func parseIndexTuple(data []byte) (*IndexTupleData, error) {
	if len(data) < 8 {
		return nil, ErrItemTooSmall
	}
	blk := u32(data, 0)
	pos := u16(data, 4)
	info := u16(data, 6)
	size := int(info & indexSizeMask)
	if size > len(data) {
		size = len(data)
	}
	return &IndexTupleData{
		BlockNumber: blk,
		OffsetNum:   pos,
		Size:        size,
		HasNulls:    info&indexNullMask != 0,
		HasVarwidth: info&indexVarMask != 0,
		Key:         data[8:size],
	}, nil
}

// SpgInnerTuple mirrors SpGistInnerTuple (access/spgist_private.h): a
// shared prefix datum followed by one node per downlink.
type SpgInnerTuple struct {
	HasNulls   bool
	AllTheSame bool
	NNodes     int
	PrefixSize int
	Prefix     []byte
	Nodes      []SpgNode
}

// SpgNode is one (label, downlink) entry of an inner tuple.
type SpgNode struct {
	Downlink uint32
	Label    []byte
}

func parseSpgInnerTuple(data []byte) (*SpgInnerTuple, error) {
	if len(data) < 8 {
		return nil, ErrItemTooSmall
	}
	flags := data[0]
	t := &SpgInnerTuple{
		HasNulls:   flags&0x01 != 0,
		AllTheSame: flags&0x02 != 0,
	}
	t.NNodes = int(u16(data, 2))
	prefixSize := int(u16(data, 4))
	t.PrefixSize = prefixSize
	off := 8
	if off+prefixSize > len(data) {
		return t, ErrShortBuffer
	}
	t.Prefix = data[off : off+prefixSize]
	off += prefixSize
	for i := 0; i < t.NNodes && off+4 <= len(data); i++ {
		downlink := u32(data, off)
		off += 4
		t.Nodes = append(t.Nodes, SpgNode{Downlink: downlink})
	}
	return t, nil
}

// SpgLeafTuple mirrors SpGistLeafTuple: a next-in-chain pointer plus the
// indexed datum itself.
type SpgLeafTuple struct {
	NextOffset uint16
	Size       int
	Datum      []byte
}

func parseSpgLeafTuple(data []byte) (*SpgLeafTuple, error) {
	if len(data) < 8 {
		return nil, ErrItemTooSmall
	}
	nextOff := u16(data, 0)
	size := int(u16(data, 2) & 0x1FFF)
	if size > len(data) {
		size = len(data)
	}
	return &SpgLeafTuple{
		NextOffset: nextOff,
		Size:       size,
		Datum:      data[8:size],
	}, nil
}

// GinPosting is one decoded entry of a posting list/tree: a (block,
// offset) TID reconstructed from GIN's delta/varbyte encoding.
type GinPosting struct {
	BlockNumber uint32
	OffsetNum   uint16
}

// DecodeGinPostingList decodes a compressed GIN posting list: the first
// item is stored as a full 6-byte ItemPointer, each subsequent item as a
// varbyte-encoded delta from the previous one (7 bits per byte, high bit
// set on all but the last byte of a group).
func DecodeGinPostingList(data []byte) ([]GinPosting, error) {
	if len(data) < 6 {
		return nil, ErrShortBuffer
	}

	first := ginItemPointerDecode(data[0:6])
	postings := []GinPosting{first}

	prev := ginItemToUint64(first)
	pos := 6
	for pos < len(data) {
		var delta uint64
		shift := uint(0)
		for {
			if pos >= len(data) {
				return postings, ErrShortBuffer
			}
			b := data[pos]
			pos++
			delta |= uint64(b&0x7F) << shift
			shift += 7
			if b&0x80 == 0 {
				break
			}
		}
		if delta == 0 {
			break
		}
		prev += delta
		postings = append(postings, ginUint64ToItem(prev))
	}
	return postings, nil
}

// ginItemPointerDecode reads a plain 6-byte ItemPointerData.
func ginItemPointerDecode(data []byte) GinPosting {
	return GinPosting{
		BlockNumber: u32(data, 0),
		OffsetNum:   u16(data, 4),
	}
}

// GIN packs a TID into a 48-bit space as blockid<<11|offset so that
// posting-list deltas can be computed with plain integer arithmetic.
func ginItemToUint64(p GinPosting) uint64 {
	return uint64(p.BlockNumber)<<11 | uint64(p.OffsetNum&0x7FF)
}

func ginUint64ToItem(v uint64) GinPosting {
	return GinPosting{
		BlockNumber: uint32(v >> 11),
		OffsetNum:   uint16(v & 0x7FF),
	}
}

// InterpretItem renders one line pointer's payload according to mode,
// the Go-idiomatic equivalent of FormatItem's per-ITEM_* branches.
func InterpretItem(data []byte, lp ItemId, mode ItemInterpretation) (*Item, error) {
	if lp.Flags == LPUnused {
		return nil, nil
	}
	if lp.Offset+lp.Length > len(data) {
		return nil, ErrItemExtendsBeyondPage
	}
	payload := data[lp.Offset : lp.Offset+lp.Length]

	switch mode {
	case ItemAsIndex:
		it, err := parseIndexTuple(payload)
		if err != nil {
			return nil, err
		}
		return &Item{Kind: "index", Size: lp.Length, IndexTuple: it}, nil
	case ItemAsSpgInner:
		t, err := parseSpgInnerTuple(payload)
		if err != nil {
			return nil, err
		}
		return &Item{Kind: "spgist-inner", Size: lp.Length, SpgInner: t}, nil
	case ItemAsSpgLeaf:
		t, err := parseSpgLeafTuple(payload)
		if err != nil {
			return nil, err
		}
		return &Item{Kind: "spgist-leaf", Size: lp.Length, SpgLeaf: t}, nil
	default:
		return nil, fmt.Errorf("unsupported item interpretation mode %d", mode)
	}
}

// ParsePage walks one page's line-pointer array and decodes each normal
// item as a heap tuple. Callers that need index/SP-GiST interpretation
// instead use ParseRawPage + InterpretItem directly.
func ParsePage(data []byte) []TupleEntry {
	page, err := ParseRawPage(data)
	if err != nil {
		return nil
	}

	var entries []TupleEntry
	for i, lp := range page.Items {
		entry := TupleEntry{ItemIndex: i, LinePtr: lp}

		if lp.Flags != LPNormal {
			continue
		}
		if lp.Offset+lp.Length > len(data) {
			entry.Err = ErrItemExtendsBeyondPage
			entries = append(entries, entry)
			continue
		}
		if lp.Length < 23 {
			entry.Err = ErrItemTooSmall
			entries = append(entries, entry)
			continue
		}

		raw := data[lp.Offset : lp.Offset+lp.Length]
		header := parseHeapTupleHeader(raw)
		if header == nil {
			entry.Err = ErrItemTooSmall
			entries = append(entries, entry)
			continue
		}

		tuple := &HeapTupleData{Header: header, Raw: raw}
		if header.HasNull {
			bitmapBytes := (header.NAtts + 7) / 8
			bitmapEnd := 23 + bitmapBytes
			if bitmapEnd > len(raw) {
				bitmapEnd = len(raw)
			}
			tuple.Bitmap = raw[23:bitmapEnd]
		}
		hoff := int(header.Hoff)
		if hoff > len(raw) || hoff < 23 {
			hoff = len(raw)
		}
		tuple.Data = raw[hoff:]

		entry.Tuple = tuple
		entries = append(entries, entry)
	}
	return entries
}
