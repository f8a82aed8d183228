// Package pgdump parses PostgreSQL page and heap/index/sequence files
// offline, without a running server or database credentials, the same way
// the original pg_filedump tool reads a raw relation file handed to it on
// the command line.
//
// It reads no catalog tables and opens no live connection, and the few
// helpers that take a data directory (relmap and TOAST file loading) only
// build paths inside it from OIDs the caller passes in: callers who want
// attribute names and types decoded
// supply a Column schema themselves (e.g. from their own prior knowledge
// of the table, or from a pg_dump --schema-only of the same database).
// Reconstructing that schema from pg_class/pg_attribute is out of scope —
// this package only ever sees the bytes of the file(s) you give it.
//
// # Basic usage
//
//	data, _ := os.ReadFile("/path/to/base/16384/16390")
//	entries := pgdump.ParseFile(data, nil)
//	for _, e := range entries {
//	    fmt.Printf("tuple at page %d item %d: %d bytes\n",
//	        e.PageOffset/pgdump.PageSize, e.ItemIndex, len(e.Tuple.Data))
//	}
//
//	// With a known schema:
//	columns := []pgdump.Column{
//	    {Name: "id", TypID: pgdump.OidInt4, Len: 4, Num: 1},
//	    {Name: "note", TypID: pgdump.OidText, Len: -1, Num: 2},
//	}
//	rows := pgdump.ParseFileWithSchema(data, columns, nil)
package pgdump

// Options configures how a file is walked and decoded. It corresponds to
// the external flags an inspector CLI exposes (-pagesize, -segsize,
// -segno, -blocks, -checksums, -toast, -itemmode, -ignore-xmax); parsing
// those flags into an Options value is the CLI's job, not this package's.
type Options struct {
	// PageSize overrides the page size detected/assumed for the file
	// (0 = use the package-wide PageSize default, currently 8192).
	PageSize int
	// SegmentSize holds the segment size of a relation split across
	// <relfilenode>.N files. ParseFile and ParseFileWithSchema do not read
	// it; the helpers in segment.go take their own SegmentOptions.
	SegmentSize int
	// SegmentNumber holds the segment number of the file being read.
	// ParseFile and ParseFileWithSchema do not read it either.
	SegmentNumber int
	// Blocks restricts decoding to a block range (nil = the whole file).
	Blocks *BlockRange
	// VerifyChecksums records that pd_checksum verification was requested.
	// ParseFile and ParseFileWithSchema do not read it and verify no
	// checksums; VerifyChecksum (page.go) is the per-page check.
	VerifyChecksums bool
	// ItemMode selects how line-pointer payloads that are not ordinary
	// heap tuples should be interpreted.
	ItemMode ItemInterpretation
	// ResolveToast, when true, chases external TOAST pointers into the
	// sibling relation file via ToastReader.
	ResolveToast bool
	ToastReader  *TOASTReader
	// IgnoreXmaxNonzero treats every tuple as visible regardless of
	// xmax, matching pg_filedump's default (non -y) behavior of not
	// second-guessing transaction status without a running catalog.
	IgnoreXmaxNonzero bool
}

func withDefaults(opts *Options) *Options {
	if opts == nil {
		opts = &Options{}
	}
	if opts.PageSize > 0 {
		PageSize = opts.PageSize
	}
	return opts
}

func blockSlice(data []byte, br *BlockRange) []byte {
	if br == nil {
		return data
	}
	start, end := 0, len(data)/PageSize-1
	if br.Start >= 0 {
		start = br.Start
	}
	if br.End >= 0 {
		end = br.End
	}
	if start < 0 || start > end {
		return nil
	}
	lo := start * PageSize
	hi := (end + 1) * PageSize
	if hi > len(data) {
		hi = len(data)
	}
	if lo >= hi {
		return nil
	}
	return data[lo:hi]
}

// ParseFile extracts every item from a raw relation file, applying opts
// (block range, page size override, xmax handling, item interpretation
// mode). Heap mode (the default) returns entries with Tuple populated;
// any other ItemMode walks the page's line pointers through InterpretItem
// instead and returns entries with Item populated.
func ParseFile(data []byte, opts *Options) []TupleEntry {
	opts = withDefaults(opts)
	region := blockSlice(data, opts.Blocks)

	if opts.ItemMode != ItemAsHeap {
		return parseItems(region, opts.ItemMode)
	}
	return ReadTuples(region, !opts.IgnoreXmaxNonzero)
}

// parseItems walks every page in region and interprets each normal line
// pointer's payload according to mode, for the index/SP-GiST item modes
// ReadTuples (heap-only) doesn't cover.
func parseItems(data []byte, mode ItemInterpretation) []TupleEntry {
	var entries []TupleEntry
	for off := 0; off+PageSize <= len(data); off += PageSize {
		block := data[off : off+PageSize]
		page, err := ParseRawPage(block)
		if err != nil {
			continue
		}
		for i, lp := range page.Items {
			item, err := InterpretItem(block, lp, mode)
			if err != nil || item == nil {
				continue
			}
			entries = append(entries, TupleEntry{
				PageOffset: off,
				ItemIndex:  i,
				LinePtr:    lp,
				Item:       item,
			})
		}
	}
	return entries
}

// ParseFileWithSchema extracts rows from a raw relation file using a
// caller-supplied column schema. When opts.ResolveToast is set and a
// ToastReader is supplied, external TOAST pointers found in varlena
// columns are chased into their sibling relation before decoding.
func ParseFileWithSchema(data []byte, columns []Column, opts *Options) []map[string]interface{} {
	opts = withDefaults(opts)
	var rows []map[string]interface{}
	for _, e := range ParseFile(data, opts) {
		if e.Tuple == nil {
			continue
		}
		tuple := e.Tuple
		if opts.ResolveToast && opts.ToastReader != nil {
			tuple = resolveToastedTuple(tuple, columns, opts.ToastReader)
		}
		if row := DecodeTuple(tuple, columns); row != nil {
			rows = append(rows, row)
		}
	}
	return rows
}

// resolveToastedTuple returns a copy of tuple whose varlena attribute
// bytes have had any external TOAST pointer replaced with the
// reassembled value, so DecodeTuple renders the real content instead of
// the pointer's raw bytes. Only varlena (Len == -1) columns are chased;
// fixed-width and cstring attributes never carry a TOAST pointer.
func resolveToastedTuple(tuple *HeapTupleData, columns []Column, reader *TOASTReader) *HeapTupleData {
	if tuple == nil || len(tuple.Data) == 0 {
		return tuple
	}
	rebuilt := &HeapTupleData{Header: tuple.Header, Bitmap: tuple.Bitmap, Raw: tuple.Raw}
	var out []byte
	offset := 0
	for idx, col := range columns {
		num := col.Num
		if num == 0 {
			num = idx + 1
		}
		if tuple.IsNull(num) {
			continue
		}
		colAlign := alignFromChar(col.Align)
		if colAlign == 0 {
			colAlign = typeAlign(col.TypID, col.Len)
		}
		if col.Len == -1 && offset < len(tuple.Data) && isShortVarlena(tuple.Data[offset:]) {
			colAlign = 1
		}
		offset = align(offset, colAlign)
		if offset >= len(tuple.Data) {
			break
		}

		if col.Len == -1 && IsExternalVarlena(tuple.Data[offset:]) {
			_, consumed := ReadVarlena(tuple.Data[offset:])
			resolved := reader.ReadValue(tuple.Data[offset:])
			out = append(out, resolved...)
			offset += consumed
			continue
		}

		_, consumed := readValue(tuple.Data, offset, col.TypID, col.Len)
		end := offset + consumed
		if end > len(tuple.Data) {
			end = len(tuple.Data)
		}
		out = append(out, tuple.Data[offset:end]...)
		offset = end
	}
	rebuilt.Data = out
	return rebuilt
}
