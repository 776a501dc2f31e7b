package parser

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectAndDecode converts an upload to UTF-8 and names the detected encoding.
// BOM-marked UTF-8/UTF-16 is honoured, plain UTF-8 is passed through and
// anything else is read as Latin-1, the default of SAP GUI exports.
func DetectAndDecode(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], "utf-8-bom", nil
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return nil, "", fmt.Errorf("utf-16 decode failed: %w", err)
		}
		name := "utf-16le"
		if bytes.HasPrefix(data, bomUTF16BE) {
			name = "utf-16be"
		}
		return out, name, nil
	case utf8.Valid(data):
		return data, "utf-8", nil
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("latin-1 decode failed: %w", err)
	}
	return out, "latin-1", nil
}
