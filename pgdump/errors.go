package pgdump

import "errors"

// Sentinel errors returned by the page/tuple decoding layer. None of these
// are fatal: callers are expected to record the error against the item or
// block they were decoding and continue with the next one.
var (
	ErrShortBuffer           = errors.New("pgdump: buffer shorter than declared field")
	ErrBadAlignment          = errors.New("pgdump: value not aligned as its type requires")
	ErrBadVarlenaHeader      = errors.New("pgdump: unrecognized varlena header")
	ErrDecompressionFailed   = errors.New("pgdump: varlena decompression failed")
	ErrChecksumMismatch      = errors.New("pgdump: page checksum does not match stored value")
	ErrBadHeader             = errors.New("pgdump: page header failed validation")
	ErrItemTooSmall          = errors.New("pgdump: line pointer length smaller than minimum tuple size")
	ErrItemExtendsBeyondPage = errors.New("pgdump: line pointer extends past the end of the page")
	ErrTruncated             = errors.New("pgdump: file ends mid-block")
	ErrToastOpenFailed       = errors.New("pgdump: could not open TOAST relation file")
	ErrToastIncomplete       = errors.New("pgdump: TOAST value missing one or more chunks")
)
