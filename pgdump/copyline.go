package pgdump

import (
	"fmt"
	"strings"
)

// EscapeField replaces the characters decode.c's CopyAppendEncode escapes
// when rendering one attribute's text into a COPY-format line. A literal
// NUL does not terminate the field; it is written as \0. Bytes other than
// NUL, \r, \n, \t and \\ (other control characters included) pass through
// unchanged.
//
// tabAsCR reproduces a long-standing bug in the original tool, which emits
// \r for an embedded tab instead of the \t a real COPY line needs. Callers
// that want a byte-exact replica of that tool's output should set it;
// everyone else should leave it false.
func EscapeField(s string, tabAsCR bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 0:
			b.WriteString(`\0`)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			if tabAsCR {
				b.WriteString(`\r`)
			} else {
				b.WriteString(`\t`)
			}
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// RenderCopyLine renders one decoded row as a "COPY: "-prefixed, tab-
// separated line in column order, the way the tool's text output formats a
// decoded heap tuple. Attributes that decoded to nil (SQL NULL) render as
// the literal \N token; every other attribute is stringified and escaped
// via EscapeField. An attribute that renders as empty text still
// contributes its separating tab.
func RenderCopyLine(row map[string]interface{}, columns []Column, tabAsCR bool) string {
	fields := make([]string, len(columns))
	for i, col := range columns {
		v, ok := row[col.Name]
		if !ok || v == nil {
			fields[i] = `\N`
			continue
		}
		fields[i] = EscapeField(fmt.Sprint(v), tabAsCR)
	}
	return "COPY: " + strings.Join(fields, "\t")
}
