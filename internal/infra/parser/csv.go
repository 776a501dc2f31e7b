// Package parser decodes uploaded delimited text extracts into tables.
package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
)

// ErrEmptyFile is returned for uploads without a header row.
var ErrEmptyFile = errors.New("empty file: no header row found")

var delimiters = []rune{',', ';', '\t', '|'}

// Decoder turns raw upload bytes into a RawTable.
type Decoder struct{}

// Decode reads data as delimited text. The delimiter is sniffed from the
// header line. Short rows are padded and long rows truncated.
func (Decoder) Decode(name string, data []byte) (*tables.RawTable, error) {
	decoded, enc, err := DetectAndDecode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: encoding detection failed: %w", name, err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = Sniff(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", name, ErrEmptyFile)
		}
		return nil, fmt.Errorf("%s: failed to read header row: %w", name, err)
	}
	for i, h := range headers {
		headers[i] = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var rows [][]string
	bad := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			bad++
			continue
		}
		if blank(row) {
			continue
		}
		rows = append(rows, row)
	}

	log.Printf("upload=%s encoding=%s delimiter=%q columns=%d rows=%d bad_rows=%d", name, enc, reader.Comma, len(headers), len(rows), bad)
	return tables.NewRawTable(name, headers, rows), nil
}

// Sniff picks the delimiter occurring most often in the first line,
// ignoring quoted text. Comma wins ties and empty input.
func Sniff(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	counts := map[rune]int{}
	quoted := false
	for _, r := range line {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}
	best := ','
	for _, d := range delimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
