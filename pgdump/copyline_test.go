package pgdump

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEscapeFieldDefault(t *testing.T) {
	got := EscapeField("a\tb\nc\rd\\e\x00f", false)
	want := `a\tb\nc\rd\\e\0f`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEscapeFieldTabAsCRBug(t *testing.T) {
	got := EscapeField("a\tb", true)
	want := `a\rb`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderCopyLine(t *testing.T) {
	columns := []Column{
		{Name: "id", Num: 1},
		{Name: "note", Num: 2},
	}
	row := map[string]interface{}{"id": "1", "note": nil}
	got := RenderCopyLine(row, columns, false)
	want := "COPY: 1\t\\N"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecodeDateInfinitySentinels(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, uint32(math.MinInt32))
	got, err := decodeDate(data)
	if err != nil || got != "-infinity" {
		t.Errorf("got %q, %v, want -infinity", got, err)
	}

	binary.LittleEndian.PutUint32(data, uint32(math.MaxInt32))
	got, err = decodeDate(data)
	if err != nil || got != "infinity" {
		t.Errorf("got %q, %v, want infinity", got, err)
	}
}

func TestDecodeDateBC(t *testing.T) {
	// year 0 in j2date's output denotes 1 BC.
	data := make([]byte, 4)
	jdn := 0 - postgresEpochJDate // forces j2date toward a non-positive year
	binary.LittleEndian.PutUint32(data, uint32(int32(jdn)))
	got, err := decodeDate(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) < 2 || got[len(got)-2:] != "BC" {
		t.Errorf("got %q, want a BC-suffixed date", got)
	}
}

func TestDecodeTimestampInfinitySentinels(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, uint64(int64(math.MinInt64)))
	got, err := decodeTimestamp(data)
	if err != nil || got != "-infinity" {
		t.Errorf("got %q, %v, want -infinity", got, err)
	}

	binary.LittleEndian.PutUint64(data, uint64(int64(math.MaxInt64)))
	got, err = decodeTimestamp(data)
	if err != nil || got != "infinity" {
		t.Errorf("got %q, %v, want infinity", got, err)
	}
}

func TestDecodeTimestamptzSuffix(t *testing.T) {
	data := make([]byte, 8) // usec=0 -> epoch midnight
	got, err := decodeTimestamptz(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "2000-01-01 00:00:00+00"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatUnresolvedExternalSentinel(t *testing.T) {
	ext := &VarattExternal{RawSize: 10000, ExtSize: 10000, ValueID: 42, ToastRelID: 16384, Compression: ToastCompressionPGLZ}
	got := FormatUnresolvedExternal(ext)
	want := "(TOASTED,pglz)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatUnresolvedExternalInMemory(t *testing.T) {
	got := FormatUnresolvedExternal(nil)
	want := "(TOASTED IN MEMORY)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestReadValueExternalPointerSentinel matches spec §8 scenario 3: an
// external on-disk varlena, TOAST resolution disabled, emits the literal
// "(TOASTED,pglz)" token and consumes exactly 19 bytes.
func TestReadValueExternalPointerSentinel(t *testing.T) {
	data := make([]byte, 19)
	data[0] = vartagExternalOld
	data[1] = vartagExternalOld
	binary.LittleEndian.PutUint32(data[2:], 10000) // rawsize, method=pglz(0)
	binary.LittleEndian.PutUint32(data[6:], 10000) // extsize
	binary.LittleEndian.PutUint32(data[10:], 42)   // valueid
	binary.LittleEndian.PutUint32(data[14:], 16384) // toastrelid

	val, consumed := readValue(data, 0, OidText, -1)
	if val != "(TOASTED,pglz)" {
		t.Errorf("got %v, want (TOASTED,pglz)", val)
	}
	if consumed != 19 {
		t.Errorf("consumed = %d, want 19", consumed)
	}
}

func TestDecodeRealPrecision(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, math.Float32bits(1.5))
	got, err := decodeReal(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "1.500000000000"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
