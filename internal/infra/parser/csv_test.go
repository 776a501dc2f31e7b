package parser

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestDecodeSemicolonExport(t *testing.T) {
	data := []byte("mandt;bname;ustyp\n100;ALICE;A\n100;BOB\n100;CAROL;A;extra\n;;\n")
	tb, err := Decoder{}.Decode("usr02", data)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(tb.Columns) != 3 || tb.Columns[1] != "BNAME" {
		t.Fatalf("unexpected columns: %v", tb.Columns)
	}
	if tb.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tb.Len())
	}
	if tb.Rows[1][2] != "" || len(tb.Rows[2]) != 3 {
		t.Fatalf("rows not padded/truncated: %v", tb.Rows)
	}
}

func TestDecodeUTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.Bytes([]byte("BNAME\tUSTYP\nJÜRGEN\tA\n"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tb, err := Decoder{}.Decode("usr02", data)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if tb.Columns[0] != "BNAME" || tb.Rows[0][0] != "JÜRGEN" {
		t.Fatalf("unexpected table: %+v", tb)
	}
}

func TestDecodeLatin1(t *testing.T) {
	data, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("BNAME,USTYP\nFRANÇOIS,A\n"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, enc, err := DetectAndDecode(data)
	if err != nil || enc != "latin-1" {
		t.Fatalf("enc=%s err=%v", enc, err)
	}
	tb, err := Decoder{}.Decode("usr02", data)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if tb.Rows[0][0] != "FRANÇOIS" {
		t.Fatalf("got %q", tb.Rows[0][0])
	}
}

func TestDecodeUTF8BOMHeader(t *testing.T) {
	tb, err := Decoder{}.Decode("agr", []byte("\xEF\xBB\xBFAGR_NAME,UNAME\nZ_ROLE,ALICE\n"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if tb.Columns[0] != "AGR_NAME" {
		t.Fatalf("BOM left in header: %q", tb.Columns[0])
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, err := (Decoder{}).Decode("usr02", nil); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestSniff(t *testing.T) {
	cases := map[string]rune{
		"A,B,C\n":          ',',
		"A;B;C\n":          ';',
		"A\tB\tC\n":        '\t',
		"A|B|C\n":          '|',
		"\"X;Y\",B,C\n":    ',',
		"":                 ',',
	}
	for in, want := range cases {
		if got := Sniff([]byte(in)); got != want {
			t.Fatalf("Sniff(%q)=%q want %q", in, got, want)
		}
	}
}
