package pgdump

import (
	"encoding/binary"
	"testing"
)

func TestParsePageHeaderBounds(t *testing.T) {
	good := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(good[12:], headerSize)
	binary.LittleEndian.PutUint16(good[14:], uint16(PageSize))
	binary.LittleEndian.PutUint16(good[16:], uint16(PageSize))
	if _, err := ParsePageHeader(good); err != nil {
		t.Fatalf("expected valid header, got %v", err)
	}

	bad := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(bad[12:], 4) // lower < headerSize
	if _, err := ParsePageHeader(bad); err == nil {
		t.Error("expected error for lower < headerSize")
	}

	badUpper := make([]byte, PageSize)
	binary.LittleEndian.PutUint16(badUpper[12:], headerSize)
	binary.LittleEndian.PutUint16(badUpper[14:], headerSize-1) // upper < lower
	if _, err := ParsePageHeader(badUpper); err == nil {
		t.Error("expected error for upper < lower")
	}
}

// GIN and SP-GiST opaque areas are the same MAXALIGN'd size (8 bytes); only
// the trailing page-id bytes tell them apart. These two fixtures are built
// at the identical size on purpose, matching spec §8 scenario 6 ("even
// though both sizes would match").
func TestGetSpecialSectionTypeSpgistBeforeGin(t *testing.T) {
	if macro(spgistOpaqueSize) != macro(ginOpaqueSize) {
		t.Fatalf("fixture assumes spgist and gin opaque sizes collide, got %d vs %d",
			macro(spgistOpaqueSize), macro(ginOpaqueSize))
	}
	size := macro(spgistOpaqueSize)
	data := make([]byte, size)
	binary.LittleEndian.PutUint16(data[len(data)-2:], spgistPageID)
	if got := GetSpecialSectionType(data, 0); got != SpecSectIndexSpgist {
		t.Errorf("got %v, want SpecSectIndexSpgist", got)
	}
}

func TestGetSpecialSectionTypeGin(t *testing.T) {
	size := macro(ginOpaqueSize)
	data := make([]byte, size)
	// Deliberately not the SP-GiST page-id magic, so the same-size
	// candidate falls through to GIN, which carries no page-id of its own.
	binary.LittleEndian.PutUint16(data[len(data)-2:], 0)
	if got := GetSpecialSectionType(data, 0); got != SpecSectIndexGin {
		t.Errorf("got %v, want SpecSectIndexGin", got)
	}
}

func TestGetSpecialSectionTypeSequence(t *testing.T) {
	data := make([]byte, macro(4))
	binary.LittleEndian.PutUint32(data, SequenceMagic)
	if got := GetSpecialSectionType(data, 0); got != SpecSectSequence {
		t.Errorf("got %v, want SpecSectSequence", got)
	}
}

func TestGetSpecialSectionTypeNone(t *testing.T) {
	if got := GetSpecialSectionType([]byte{}, 0); got != SpecSectNone {
		t.Errorf("got %v, want SpecSectNone", got)
	}
}

func TestReadVarlenaShortInline(t *testing.T) {
	// short header: (payload_len<<1)|1
	payload := []byte("hi")
	data := append([]byte{byte(len(payload)<<1) | 1}, payload...)
	got, consumed := ReadVarlena(data)
	if string(got) != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
	if consumed != 1+len(payload) {
		t.Errorf("consumed = %d, want %d", consumed, 1+len(payload))
	}
}

func TestReadVarlenaUncompressed4Byte(t *testing.T) {
	payload := []byte("hello world")
	total := 4 + len(payload)
	data := make([]byte, total)
	binary.LittleEndian.PutUint32(data, uint32(total<<2))
	copy(data[4:], payload)

	got, consumed := ReadVarlena(data)
	if string(got) != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
	if consumed != total {
		t.Errorf("consumed = %d, want %d", consumed, total)
	}
}

func TestReadVarlenaExternalPointerNotResolved(t *testing.T) {
	data := make([]byte, 19)
	data[0] = vartagExternalOld
	data[1] = vartagExternalOld
	got, consumed := ReadVarlena(data)
	if got != nil {
		t.Errorf("expected nil payload for external pointer, got %v", got)
	}
	if consumed != 19 {
		t.Errorf("consumed = %d, want 19", consumed)
	}
}

func TestParseVarattExternal(t *testing.T) {
	data := make([]byte, 19)
	data[0] = vartagExternalCompressed
	data[1] = vartagExternalCompressed
	binary.LittleEndian.PutUint32(data[2:], 1000|(1<<30)) // rawsize=1000, method=lz4
	binary.LittleEndian.PutUint32(data[6:], 500)           // extsize
	binary.LittleEndian.PutUint32(data[10:], 77)           // valueid
	binary.LittleEndian.PutUint32(data[14:], 16390)        // toastrelid

	ext, err := ParseVarattExternal(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ext.RawSize != 1000 || ext.Compression != 1 || ext.ExtSize != 500 ||
		ext.ValueID != 77 || ext.ToastRelID != 16390 || !ext.IsCompressed {
		t.Errorf("unexpected result: %+v", ext)
	}
}

func TestDecodeNumericZero(t *testing.T) {
	// short header, 0 digits, weight 0, dscale 0, positive: just the header
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, numericShort)
	got, err := DecodeNumeric(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0" {
		t.Errorf("got %q, want %q", got, "0")
	}
}

// TestDecodeNumericZeroWithScale covers spec §8's numeric-zero property in
// full: a payload with zero digits renders as "0" regardless of weight and
// dscale, not "0.00" for a nonzero dscale.
func TestDecodeNumericZeroWithScale(t *testing.T) {
	header := uint16(numericShort) | uint16(5<<shortDscaleShift) | uint16(3)
	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, header)
	got, err := DecodeNumeric(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0" {
		t.Errorf("got %q, want %q", got, "0")
	}
}

func TestDecodeNumericSpecials(t *testing.T) {
	tests := []struct {
		header uint16
		want   string
	}{
		{numericNaN, "NaN"},
		{numericPInf, "Infinity"},
		{numericNInf, "-Infinity"},
	}
	for _, tt := range tests {
		data := make([]byte, 2)
		binary.LittleEndian.PutUint16(data, tt.header)
		got, err := DecodeNumeric(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("header 0x%04X: got %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestDecodeNumericInteger(t *testing.T) {
	// Short header: weight=0, dscale=0, one digit group "123"
	header := uint16(numericShort) | uint16(0&shortWeightMask)
	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:], header)
	binary.LittleEndian.PutUint16(data[2:], 123)
	got, err := DecodeNumeric(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "123" {
		t.Errorf("got %q, want %q", got, "123")
	}
}

func TestDecodeDateEpoch(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 0) // days=0 -> epoch 2000-01-01
	got, err := decodeDate(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2000-01-01" {
		t.Errorf("got %q, want 2000-01-01", got)
	}
}

func TestDecodeGinPostingListSingleEntry(t *testing.T) {
	data := make([]byte, 6)
	binary.LittleEndian.PutUint32(data[0:], 5) // block
	binary.LittleEndian.PutUint16(data[4:], 9) // offset
	postings, err := DecodeGinPostingList(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 || postings[0].BlockNumber != 5 || postings[0].OffsetNum != 9 {
		t.Errorf("got %+v", postings)
	}
}

func TestDecodeGinPostingListWithDelta(t *testing.T) {
	first := GinPosting{BlockNumber: 1, OffsetNum: 1}
	data := make([]byte, 7)
	binary.LittleEndian.PutUint32(data[0:], first.BlockNumber)
	binary.LittleEndian.PutUint16(data[4:], first.OffsetNum)
	data[6] = 5 // delta of 5, single byte (no continuation bit)

	postings, err := DecodeGinPostingList(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}
	wantV := ginItemToUint64(first) + 5
	want := ginUint64ToItem(wantV)
	if postings[1] != want {
		t.Errorf("got %+v, want %+v", postings[1], want)
	}
}

func TestInterpretItemIndexTuple(t *testing.T) {
	page := make([]byte, 100)
	tuple := make([]byte, 10)
	binary.LittleEndian.PutUint32(tuple[0:], 42)          // block
	binary.LittleEndian.PutUint16(tuple[4:], 3)           // offset num
	binary.LittleEndian.PutUint16(tuple[6:], 10)          // info: size=10
	copy(page[20:], tuple)

	lp := ItemId{Offset: 20, Length: 10, Flags: LPNormal}
	item, err := InterpretItem(page, lp, ItemAsIndex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.IndexTuple.BlockNumber != 42 || item.IndexTuple.OffsetNum != 3 {
		t.Errorf("unexpected index tuple: %+v", item.IndexTuple)
	}
}

func TestInterpretItemUnusedLinePointer(t *testing.T) {
	item, err := InterpretItem(make([]byte, 100), ItemId{Flags: LPUnused}, ItemAsHeap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Errorf("expected nil item for unused line pointer, got %+v", item)
	}
}

func TestDecodeTypeUnknownFallsBackToHex(t *testing.T) {
	got := DecodeType([]byte{0xDE, 0xAD}, 999999)
	if got != `\xdead` {
		t.Errorf("got %v, want \\xdead", got)
	}
}
