package input

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	// RecordSeparator splits a text line into name and address. Only the
	// first occurrence counts; the address may contain further commas.
	RecordSeparator = ","

	// NameColumn and AddressColumn are the required CSV header cells.
	NameColumn    = "Name"
	AddressColumn = "Address"
)

var (
	// ErrMalformedRecord is returned for a text line without a separator.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrMissingField is returned for a CSV row lacking a name or address.
	ErrMissingField = errors.New("missing field")
	// ErrEncoding is returned when uploaded bytes are not valid UTF-8.
	ErrEncoding = errors.New("invalid encoding")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RecordError reports which input line failed and why.
type RecordError struct {
	Line   int
	Field  string
	Err    error
	Detail string
}

func (e *RecordError) Error() string {
	msg := fmt.Sprintf("line %d: %v", e.Line, e.Err)
	if e.Field != "" {
		msg += fmt.Sprintf(" %q", e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// People maps names to raw addresses in the order names first appeared.
// Setting an existing name replaces its address but keeps its position.
type People struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewPeople returns an empty mapping.
func NewPeople() *People {
	return &People{m: orderedmap.New[string, string]()}
}

// Set records the address for name, overwriting any earlier one.
func (p *People) Set(name, address string) {
	p.m.Set(name, address)
}

// Address returns the raw address recorded for name.
func (p *People) Address(name string) (string, bool) {
	return p.m.Get(name)
}

// Names returns all names in insertion order.
func (p *People) Names() []string {
	names := make([]string, 0, p.m.Len())
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Len returns the number of distinct names.
func (p *People) Len() int {
	return p.m.Len()
}

// ParseText reads "name, address" lines. Blank lines are skipped and each
// remaining line is split on its first comma.
func ParseText(text string) (*People, error) {
	people := NewPeople()

	for i, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}

		name, address, ok := strings.Cut(line, RecordSeparator)
		if !ok {
			return nil, &RecordError{Line: i + 1, Err: ErrMalformedRecord, Detail: "no separator"}
		}

		name = strings.TrimSpace(name)
		if name == "" {
			return nil, &RecordError{Line: i + 1, Err: ErrMalformedRecord, Detail: "empty name"}
		}

		people.Set(name, address)
	}

	return people, nil
}

// ParseCSV reads UTF-8 CSV bytes whose header row names the Name and Address
// columns. Extra columns are ignored.
func ParseCSV(data []byte) (*People, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("csv upload: %w", ErrEncoding)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	people := NewPeople()

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return people, nil
	}
	if err != nil {
		return nil, csvError(err)
	}

	nameCol, addrCol := -1, -1
	for i, cell := range header {
		switch strings.TrimSpace(cell) {
		case NameColumn:
			nameCol = i
		case AddressColumn:
			addrCol = i
		}
	}
	if nameCol < 0 {
		return nil, &RecordError{Line: 1, Field: NameColumn, Err: ErrMissingField, Detail: "not in header"}
	}
	if addrCol < 0 {
		return nil, &RecordError{Line: 1, Field: AddressColumn, Err: ErrMissingField, Detail: "not in header"}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		if isBlank(record) {
			continue
		}

		line, _ := reader.FieldPos(0)

		if nameCol >= len(record) {
			return nil, &RecordError{Line: line, Field: NameColumn, Err: ErrMissingField}
		}
		if addrCol >= len(record) {
			return nil, &RecordError{Line: line, Field: AddressColumn, Err: ErrMissingField}
		}

		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			return nil, &RecordError{Line: line, Field: NameColumn, Err: ErrMissingField, Detail: "empty"}
		}

		people.Set(name, record[addrCol])
	}

	return people, nil
}

func csvError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &RecordError{Line: parseErr.Line, Err: ErrMalformedRecord, Detail: parseErr.Err.Error()}
	}
	return fmt.Errorf("read csv: %w", err)
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// splitLines breaks text at \n, \r, \r\n, \v, \f, \x1c-\x1e, U+0085,
// U+2028 and U+2029.
func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isLineBreak(r) {
			i += size
			continue
		}
		lines = append(lines, text[start:i])
		i += size
		if r == '\r' && i < len(text) && text[i] == '\n' {
			i++
		}
		start = i
	}
	return append(lines, text[start:])
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}
