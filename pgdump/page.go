package pgdump

import (
	"encoding/binary"
	"fmt"
)

// PageSize is the page size assumed when none is supplied explicitly.
// PostgreSQL almost always builds with 8192-byte pages; -pagesize lets a
// caller override it for a cluster built with a non-default BLCKSZ.
var PageSize = 8192

const (
	headerSize = 24 // sizeof(PageHeaderData)
	itemIDSize = 4  // sizeof(ItemIdData)
)

// Line pointer flags (lp_flags), packed into bits 15-16 of ItemIdData.
const (
	LPUnused   = 0
	LPNormal   = 1
	LPRedirect = 2
	LPDead     = 3
)

// Page header flag bits (pd_flags).
const (
	PDHasFreeLines = 0x0001
	PDPageFull     = 0x0002
	PDAllVisible   = 0x0004
)

// PageHeader mirrors PageHeaderData from storage/bufpage.h.
type PageHeader struct {
	LSN           uint64
	Checksum      uint16
	Flags         uint16
	Lower         uint16
	Upper         uint16
	Special       uint16
	PageSizeField int // pd_pagesize_version high bits
	Version       int // pd_pagesize_version low bits
	PruneXid      uint32
}

// ItemId mirrors ItemIdData: a packed (offset, flags, length) triple.
type ItemId struct {
	Offset int
	Flags  int
	Length int
}

func parseItemId(raw uint32) ItemId {
	return ItemId{
		Offset: int(raw & 0x7FFF),
		Flags:  int((raw >> 15) & 0x3),
		Length: int((raw >> 17) & 0x7FFF),
	}
}

// SpecialSectionType identifies what kind of opaque data (if any) trails a
// page, mirroring GetSpecialSectionType in the original pg_filedump.c.
type SpecialSectionType int

const (
	SpecSectNone SpecialSectionType = iota
	SpecSectSequence
	SpecSectIndexBtree
	SpecSectIndexHash
	SpecSectIndexGist
	SpecSectIndexGin
	SpecSectIndexSpgist
	SpecSectErrorUnknown
	SpecSectErrorBoundary
)

func (t SpecialSectionType) String() string {
	switch t {
	case SpecSectNone:
		return "None"
	case SpecSectSequence:
		return "Sequence"
	case SpecSectIndexBtree:
		return "BTree Index"
	case SpecSectIndexHash:
		return "Hash Index"
	case SpecSectIndexGist:
		return "GiST Index"
	case SpecSectIndexGin:
		return "GIN Index"
	case SpecSectIndexSpgist:
		return "SP-GiST Index"
	case SpecSectErrorBoundary:
		return "Boundary error"
	default:
		return "Error: Unknown special section type"
	}
}

// Special-section payload sizes, MAXALIGN'd, matching the real structs
// that sit in the opaque area of each index AM's pages (storage/bufpage.h
// tail structs: BTPageOpaqueData, HashPageOpaqueData, GISTPageOpaqueData,
// GinPageOpaqueData, SpGistPageOpaqueData). BTree/Hash/GiST opaques are
// each 16 bytes (already MAXALIGN(8)-aligned); GIN/SP-GiST opaques are
// each 8 bytes. These two size buckets, not four or five distinct ones,
// are exactly why GetSpecialSectionType needs the trailing page-id bytes
// to disambiguate same-sized candidates.
const (
	maxAlign = 8

	btreeOpaqueSize  = 16 // btpo_prev+btpo_next+level/xact union+flags+cycleid
	hashOpaqueSize   = 16 // hasho_prevblkno+hasho_nextblkno+hasho_bucket+hasho_flag+hasho_page_id
	gistOpaqueSize   = 16 // nsn(8)+rightlink(4)+flags(2)+gist_page_id(2)
	ginOpaqueSize    = 8  // rightlink(4)+maxoff(2)+flags(2)
	spgistOpaqueSize = 8  // flags(2)+nRedirection(2)+nPlaceholder(2)+spgist_page_id(2)
)

// page-id magic numbers and the max valid btree vacuum cycle id, written
// into the tail of certain opaque areas and used to break ties between
// same-sized special sections. GIN's opaque area carries no page-id
// magic, so it is never tail-checked, only size-checked.
const (
	maxBtCycleID = 0xFFFE // MAX_BT_CYCLE_ID
	hashoPageID  = 0xFF80
	gistPageID   = 0xFF81
	spgistPageID = 0xFF82
)

func macro(n int) int {
	return (n + maxAlign - 1) &^ (maxAlign - 1)
}

// GetSpecialSectionType classifies the special section the same way the
// original GetSpecialSectionType does, branch for branch: a 4-byte-MAXALIGN
// size (== 8, same as MAXALIGN'd GIN/SP-GiST) could be a sequence, SP-GiST,
// or GIN; a size matching GIN/SP-GiST directly falls to the same two
// candidates; anything else checks the btree/hash/GiST bucket (all three
// share the same MAXALIGN'd size), disambiguated by the trailing page-id
// bytes (or, for btree, the vacuum cycle id).
func GetSpecialSectionType(data []byte, special uint16) SpecialSectionType {
	if int(special) > len(data) {
		return SpecSectErrorBoundary
	}
	size := len(data) - int(special)

	if size == 0 {
		return SpecSectNone
	}

	tail := tailPageID(data, special)

	if size == macro(4) {
		// If MAXALIGN is 8, this could be a sequence, SP-GiST, or GIN.
		if int(special)+4 <= len(data) && binary.LittleEndian.Uint32(data[special:]) == SequenceMagic {
			return SpecSectSequence
		}
		if size == macro(spgistOpaqueSize) && tail == spgistPageID {
			return SpecSectIndexSpgist
		}
		if size == macro(ginOpaqueSize) {
			return SpecSectIndexGin
		}
		return SpecSectErrorUnknown
	}

	// SP-GiST and GIN have the same special section size, so check the
	// page-id bytes first.
	if size == macro(spgistOpaqueSize) && tail == spgistPageID {
		return SpecSectIndexSpgist
	}
	if size == macro(ginOpaqueSize) {
		return SpecSectIndexGin
	}

	if size > 2 {
		// BTree, Hash, and GiST all have the same size special section,
		// disambiguated by the trailing page-id bytes (btree instead
		// checks the vacuum cycle id, which is always <= MAX_BT_CYCLE_ID).
		if tail <= maxBtCycleID && size == macro(btreeOpaqueSize) {
			return SpecSectIndexBtree
		}
		if tail == hashoPageID && size == macro(hashOpaqueSize) {
			return SpecSectIndexHash
		}
		if tail == gistPageID && size == macro(gistOpaqueSize) {
			return SpecSectIndexGist
		}
		return SpecSectErrorUnknown
	}

	return SpecSectErrorUnknown
}

// tailPageID reads the last two bytes of the page, where the hash, GiST and
// SP-GiST opaque areas keep their "page_id" magic and the btree opaque
// keeps its vacuum cycle id.
func tailPageID(data []byte, special uint16) uint16 {
	end := len(data)
	if end < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(data[end-2 : end])
}

// ParsePageHeader reads and validates the 24-byte PageHeaderData at the
// front of a block. pd_lower, pd_upper and pd_special are checked against
// len(data), so a partially-written last block whose offsets point past the
// bytes present fails with ErrBadHeader; a short block is not capped to the
// bytes present. Callers should check len(data) against PageSize separately
// and surface ErrTruncated when short.
func ParsePageHeader(data []byte) (*PageHeader, error) {
	if len(data) < headerSize {
		return nil, ErrBadHeader
	}

	h := &PageHeader{
		LSN:      u64(data, 0),
		Checksum: u16(data, 8),
		Flags:    u16(data, 10),
		Lower:    u16(data, 12),
		Upper:    u16(data, 14),
		Special:  u16(data, 16),
	}

	psv := u16(data, 18)
	h.PageSizeField = int(psv & 0xFF00)
	h.Version = int(psv & 0x00FF)
	h.PruneXid = u32(data, 20)

	if int(h.Lower) < headerSize || int(h.Lower) > len(data) {
		return h, fmt.Errorf("%w: lower=%d", ErrBadHeader, h.Lower)
	}
	if int(h.Upper) > len(data) || h.Upper < h.Lower {
		return h, fmt.Errorf("%w: upper=%d lower=%d", ErrBadHeader, h.Upper, h.Lower)
	}
	if int(h.Special) > len(data) || h.Special < h.Upper {
		return h, fmt.Errorf("%w: special=%d upper=%d", ErrBadHeader, h.Special, h.Upper)
	}

	return h, nil
}

// Page is a fully parsed block: header, line-pointer array and the
// special-section classification.
type Page struct {
	Header      *PageHeader
	Items       []ItemId
	SpecialType SpecialSectionType
	Data        []byte // the full, original block buffer
}

// ParseRawPage validates and slices a single block without walking its
// items into tuples; FormatBlock-style callers use this, while ParsePage
// (in item.go) additionally interprets each item as a heap tuple.
func ParseRawPage(data []byte) (*Page, error) {
	if len(data) < PageSize {
		return nil, ErrTruncated
	}
	block := data[:PageSize]

	header, err := ParsePageHeader(block)
	if err != nil {
		return nil, err
	}

	p := &Page{Header: header, Data: block}
	p.SpecialType = GetSpecialSectionType(block, header.Special)

	itemCount := (int(header.Lower) - headerSize) / itemIDSize
	p.Items = make([]ItemId, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		off := headerSize + i*itemIDSize
		raw := binary.LittleEndian.Uint32(block[off : off+4])
		p.Items = append(p.Items, parseItemId(raw))
	}

	return p, nil
}

// IsBtreeMetaPage reports whether block 0 of a btree carries the
// meta-page marker, matching IsBtreeMetaPage in pg_filedump.c.
func IsBtreeMetaPage(p *Page) bool {
	const btreeMetaPageFlag = 0x0008 // BTP_META
	if p.SpecialType != SpecSectIndexBtree {
		return false
	}
	if int(p.Header.Special)+6 > len(p.Data) {
		return false
	}
	flags := binary.LittleEndian.Uint16(p.Data[int(p.Header.Special)+12:])
	return flags&btreeMetaPageFlag != 0
}

func u16(data []byte, off int) uint16 {
	if off+2 > len(data) {
		return 0
	}
	return binary.LittleEndian.Uint16(data[off:])
}

func u32(data []byte, off int) uint32 {
	if off+4 > len(data) {
		return 0
	}
	return binary.LittleEndian.Uint32(data[off:])
}

func i32(data []byte, off int) int32 {
	return int32(u32(data, off))
}

func u64(data []byte, off int) uint64 {
	if off+8 > len(data) {
		return 0
	}
	return binary.LittleEndian.Uint64(data[off:])
}

// align rounds offset up to the given alignment (1, 2, 4 or 8).
func align(offset, alignment int) int {
	if alignment <= 1 {
		return offset
	}
	return (offset + alignment - 1) &^ (alignment - 1)
}

// FormatLSN renders a packed LSN the way PostgreSQL prints pg_lsn: %X/%X.
func FormatLSN(lsn uint64) string {
	return fmt.Sprintf("%X/%X", uint32(lsn>>32), uint32(lsn))
}

// VerifyChecksum is a placeholder for PostgreSQL's page checksum algorithm.
// The spec treats the checksum routine itself as a black box; wiring in the
// real FNV-based algorithm is out of scope for this inspector, so this
// function only reports whether pd_checksum is nonzero (i.e. whether
// checksums are plausibly enabled for the cluster the page came from).
// Callers that need actual verification supply their own implementation
// via the CheckChecksum function value.
func VerifyChecksum(data []byte, blockNumber uint32) (bool, error) {
	if len(data) < headerSize {
		return false, ErrShortBuffer
	}
	stored := u16(data, 8)
	if CheckChecksum == nil {
		return stored != 0, nil
	}
	return CheckChecksum(data, blockNumber) == stored, nil
}

// CheckChecksum, when set, computes PostgreSQL's page checksum for the
// given block. Left nil by default since the checksum algorithm is out of
// this package's scope; a caller who has it can plug it in.
var CheckChecksum func(data []byte, blockNumber uint32) uint16
