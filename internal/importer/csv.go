package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tablewright/tablewright/internal/catalog"
	"github.com/tablewright/tablewright/internal/fieldtype"
)

// sniffSample caps how many rows type sniffing inspects per column.
const sniffSample = 1000

// Dataset is parsed tabular data ready for catalog import.
type Dataset struct {
	Name    string
	Columns []catalog.Column
	Rows    [][]any
}

// ReadCSVFile parses a CSV file. The table name is derived from the
// file name.
func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadCSV(f, name)
}

// ReadCSV parses CSV data with a header row, sniffs a type per column,
// and converts cells to typed values. Blank cells become NULL.
func ReadCSV(r io.Reader, name string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty input", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}

	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		// Duplicate headers get a numeric suffix, like price_2.
		base := h
		for n := 2; seen[h]; n++ {
			h = fmt.Sprintf("%s_%d", base, n)
		}
		seen[h] = true
		names[i] = h
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: reading row %d: %w", name, len(records)+2, err)
		}
		records = append(records, rec)
	}

	cols := make([]catalog.Column, len(names))
	for i, colName := range names {
		cols[i] = catalog.Column{Name: colName, Type: sniffType(records, i)}
	}

	rows := make([][]any, len(records))
	for ri, rec := range records {
		row := make([]any, len(cols))
		for ci, col := range cols {
			row[ci] = convertCell(rec[ci], col.Type)
		}
		rows[ri] = row
	}

	return &Dataset{Name: name, Columns: cols, Rows: rows}, nil
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006"}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// sniffType infers a column type from up to sniffSample non-blank
// values. A column where every sampled value parses as an integer is
// integer, and so on down to the text fallback.
func sniffType(records [][]string, col int) fieldtype.Type {
	isInt, isFloat, isBool, isDate, isTS := true, true, true, true, true
	sampled := 0

	for _, rec := range records {
		if sampled >= sniffSample {
			break
		}
		v := strings.TrimSpace(rec[col])
		if v == "" {
			continue
		}
		sampled++

		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool && !parseableBool(v) {
			isBool = false
		}
		if isDate && !parseableAs(v, dateLayouts) {
			isDate = false
		}
		if isTS && !parseableAs(v, timestampLayouts) {
			isTS = false
		}
	}

	if sampled == 0 {
		return fieldtype.Text
	}
	switch {
	case isBool:
		return fieldtype.Boolean
	case isInt:
		return fieldtype.Integer
	case isFloat:
		return fieldtype.Float
	case isDate:
		return fieldtype.Date
	case isTS:
		return fieldtype.Timestamp
	default:
		return fieldtype.Text
	}
}

func parseableBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false":
		return true
	}
	return false
}

func parseableAs(v string, layouts []string) bool {
	for _, layout := range layouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// convertCell parses one cell into the column's sniffed type. Blank
// cells become nil; unparseable cells fall back to the raw string.
func convertCell(raw string, typ fieldtype.Type) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	switch typ {
	case fieldtype.Integer:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case fieldtype.Float:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case fieldtype.Boolean:
		return strings.EqualFold(v, "true")
	}
	return v
}
