package pgdump

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// decodeFunc is the attribute decoder table's uniform signature: given the
// raw bytes of one already-varlena-resolved attribute value, render it as
// text. This mirrors decode_callback_t / callback_table in the original
// decode.c, where every named type maps to one function with this shape.
type decodeFunc func(data []byte) (string, error)

var decodeTable = map[int]decodeFunc{
	OidInt2:        decodeSmallint,
	OidInt4:        decodeInt,
	OidOid:         decodeOid,
	OidXid:         decodeXid,
	OidCid:         decodeOid,
	OidInt8:        decodeBigint,
	OidFloat4:      decodeReal,
	OidFloat8:      decodeFloat,
	OidBool:        decodeBool,
	OidUUID:        decodeUUID,
	OidMacaddr:     decodeMacaddr,
	OidDate:        decodeDate,
	OidTime:        decodeTime,
	OidTimeTZ:      decodeTimetz,
	OidTimestamp:   decodeTimestamp,
	OidTimestampTZ: decodeTimestamptz,
	OidChar:        decodeChar,
	OidName:        decodeName,
	OidNumeric:     decodeNumericText,
	OidBpchar:      decodeString,
	OidVarchar:     decodeString,
	OidText:        decodeString,
	OidJSON:        decodeString,
	OidJSONB:       decodeString,
	OidXML:         decodeString,
}

// DecodeType renders the bytes of one attribute value as text according to
// the attribute decoder table. Types with no registered decoder fall back
// to decode_ignore's behavior: the raw bytes are reported hex-encoded
// rather than silently dropped, since an offline inspector should never
// discard bytes it can't interpret.
func DecodeType(data []byte, typID int) interface{} {
	if fn, ok := decodeTable[typID]; ok {
		s, err := fn(data)
		if err != nil {
			return fmt.Sprintf("<decode error: %v>", err)
		}
		return s
	}
	return decodeIgnore(data)
}

func decodeSmallint(data []byte) (string, error) {
	if len(data) < 2 {
		return "", ErrShortBuffer
	}
	return fmt.Sprintf("%d", int16(u16(data, 0))), nil
}

func decodeInt(data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrShortBuffer
	}
	return fmt.Sprintf("%d", int32(u32(data, 0))), nil
}

func decodeOid(data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrShortBuffer
	}
	return fmt.Sprintf("%d", u32(data, 0)), nil
}

func decodeXid(data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrShortBuffer
	}
	return fmt.Sprintf("%d", u32(data, 0)), nil
}

func decodeBigint(data []byte) (string, error) {
	if len(data) < 8 {
		return "", ErrShortBuffer
	}
	return fmt.Sprintf("%d", int64(u64(data, 0))), nil
}

func decodeReal(data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrShortBuffer
	}
	f := math.Float32frombits(u32(data, 0))
	return fmt.Sprintf("%.12f", f), nil
}

func decodeFloat(data []byte) (string, error) {
	if len(data) < 8 {
		return "", ErrShortBuffer
	}
	f := math.Float64frombits(u64(data, 0))
	return fmt.Sprintf("%.12f", f), nil
}

func decodeBool(data []byte) (string, error) {
	if len(data) < 1 {
		return "", ErrShortBuffer
	}
	if data[0] != 0 {
		return "t", nil
	}
	return "f", nil
}

func decodeUUID(data []byte) (string, error) {
	if len(data) < 16 {
		return "", ErrShortBuffer
	}
	id, err := uuid.FromBytes(data[:16])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadAlignment, err)
	}
	return id.String(), nil
}

func decodeMacaddr(data []byte) (string, error) {
	if len(data) < 6 {
		return "", ErrShortBuffer
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		data[0], data[1], data[2], data[3], data[4], data[5]), nil
}

// postgresEpochJDate is POSTGRES_EPOCH_JDATE: the Julian Day Number of
// 2000-01-01, the zero point for date/timestamp on-disk values.
const postgresEpochJDate = 2451545
const usecsPerDay = 86400000000

func decodeDate(data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrShortBuffer
	}
	days := int32(u32(data, 0))
	switch days {
	case math.MinInt32:
		return "-infinity", nil
	case math.MaxInt32:
		return "infinity", nil
	}
	y, m, d := j2date(int(days) + postgresEpochJDate)
	return formatYMD(y, m, d), nil
}

// formatYMD renders a proleptic Gregorian date, appending " BC" for years
// at or before 1 BC (PostgreSQL has no year zero: year 0 in j2date's output
// is 1 BC).
func formatYMD(y, m, d int) string {
	if y <= 0 {
		return fmt.Sprintf("%04d-%02d-%02d BC", 1-y, m, d)
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func decodeTime(data []byte) (string, error) {
	if len(data) < 8 {
		return "", ErrShortBuffer
	}
	usec := int64(u64(data, 0))
	return formatTimeOfDay(usec), nil
}

func decodeTimetz(data []byte) (string, error) {
	if len(data) < 12 {
		return "", ErrShortBuffer
	}
	usec := int64(u64(data, 0))
	zone := int32(u32(data, 8))
	sign := "+"
	off := -zone
	if off < 0 {
		sign = "-"
		off = -off
	}
	return fmt.Sprintf("%s%s%02d", formatTimeOfDay(usec), sign, off/3600), nil
}

func decodeTimestamp(data []byte) (string, error) {
	s, err := formatTimestamp(data)
	return s, err
}

func decodeTimestamptz(data []byte) (string, error) {
	s, err := formatTimestamp(data)
	if err != nil || s == "-infinity" || s == "infinity" {
		return s, err
	}
	return s + "+00", nil
}

func formatTimestamp(data []byte) (string, error) {
	if len(data) < 8 {
		return "", ErrShortBuffer
	}
	usec := int64(u64(data, 0))
	switch usec {
	case math.MinInt64:
		return "-infinity", nil
	case math.MaxInt64:
		return "infinity", nil
	}
	days := usec / usecsPerDay
	rem := usec % usecsPerDay
	if rem < 0 {
		rem += usecsPerDay
		days--
	}
	y, m, d := j2date(int(days) + postgresEpochJDate)
	if y <= 0 {
		return fmt.Sprintf("%04d-%02d-%02d %s BC", 1-y, m, d, formatTimeOfDay(rem)), nil
	}
	return fmt.Sprintf("%04d-%02d-%02d %s", y, m, d, formatTimeOfDay(rem)), nil
}

func formatTimeOfDay(usec int64) string {
	if usec < 0 {
		usec = 0
	}
	sec := usec / 1000000
	frac := usec % 1000000
	h := sec / 3600
	min := (sec % 3600) / 60
	s := sec % 60
	if frac == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, min, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%06d", h, min, s, frac)
}

// j2date converts a Julian Day Number to a proleptic Gregorian
// (year, month, day), the same algorithm PostgreSQL's j2date() in
// datetime.c uses.
func j2date(jd int) (year, month, day int) {
	julian := jd + 32044
	quad := julian / 146097
	extra := (julian - quad*146097) * 4 + 3
	julian += 60 + quad*3 + extra/146097
	quad = julian / 1461
	julian -= quad * 1461
	y := julian * 4 / 1461
	if y != 0 {
		julian = (julian+305)%365 + 123
	} else {
		julian = (julian+306)%366 + 123
	}
	y += quad * 4
	year = y - 4800
	quad = julian * 2141 / 65536
	day = julian - 7834*quad/256
	month = (quad + 10) % 12 + 1
	return
}

func decodeChar(data []byte) (string, error) {
	if len(data) < 1 {
		return "", ErrShortBuffer
	}
	return string(data[:1]), nil
}

// NameDataLen is NAMEDATALEN: the fixed width of a `name` column.
const NameDataLen = 64

func decodeName(data []byte) (string, error) {
	n := len(data)
	if n > NameDataLen {
		n = NameDataLen
	}
	return strings.TrimRight(string(data[:n]), "\x00"), nil
}

func decodeNumericText(data []byte) (string, error) {
	return DecodeNumeric(data)
}

func decodeString(data []byte) (string, error) {
	return string(data), nil
}

func decodeIgnore(data []byte) string {
	return fmt.Sprintf("\\x%x", data)
}
