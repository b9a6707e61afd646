package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a fully-read CSV file with header-indexed column access. The
// reference files are a few thousand rows at most, so streaming is not
// worth the ceremony here.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// TableOptions configures CSV parsing.
type TableOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// ReadTable parses a CSV stream with a header row into a Table.
func ReadTable(r io.Reader, opts TableOptions) (*Table, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow ragged rows, validated by callers

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read")
	}
	if len(records) == 0 {
		return nil, eris.New("csv: empty file")
	}

	if opts.TrimSpace {
		for _, rec := range records {
			for i, field := range rec {
				rec[i] = strings.TrimSpace(field)
			}
		}
	}

	t := &Table{
		Header: records[0],
		Rows:   records[1:],
		index:  make(map[string]int, len(records[0])),
	}
	for i, name := range t.Header {
		// Strip a UTF-8 BOM from the first header cell.
		name = strings.TrimPrefix(name, "\ufeff")
		t.Header[i] = name
		t.index[name] = i
	}
	return t, nil
}

// Col returns the index of a named column, or -1 if absent.
func (t *Table) Col(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Get returns the value of a named column in a row, or "" if the column is
// absent or the row is short.
func (t *Table) Get(row []string, name string) string {
	i := t.Col(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// RequireCols verifies that all named columns are present.
func (t *Table) RequireCols(names ...string) error {
	var missing []string
	for _, n := range names {
		if t.Col(n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("csv: missing required columns %v (have %v)", missing, t.Header)
	}
	return nil
}
