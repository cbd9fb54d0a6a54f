package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// ReadOptions controls how CSV input is typed.
type ReadOptions struct {
	// DateColumns are parsed as timestamps. A listed column that is missing
	// from the header is an error. The first entry becomes the table's DateColumn.
	DateColumns []string

	// Comma is the field delimiter (default ',').
	Comma rune
}

// ReadFile opens path and reads it with ReadCSV.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f, opts)
}

// ReadCSV parses CSV input with a header row into a Table.
func ReadCSV(r io.Reader, opts ReadOptions) (*Table, error) {
	reader := csv.NewReader(NewCleanReader(r))
	reader.FieldsPerRecord = -1
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Line: 1, Err: ErrNoHeader}
	}
	if err != nil {
		return nil, csvError(err)
	}
	header = uniqueHeader(header)

	var records [][]string
	var lines []int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) > len(header) {
			return nil, &ParseError{
				Line: line,
				Err:  fmt.Errorf("%w: expected %d, saw %d", ErrTooManyFields, len(header), len(record)),
			}
		}
		records = append(records, record)
		lines = append(lines, line)
	}

	dateCols := make(map[string]bool, len(opts.DateColumns))
	for _, name := range opts.DateColumns {
		dateCols[name] = true
	}

	columns := make([]*Column, len(header))
	for j, name := range header {
		cells := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = strings.TrimSpace(rec[j])
			}
		}

		if dateCols[name] {
			col, err := parseTimeColumn(name, cells, lines)
			if err != nil {
				return nil, err
			}
			columns[j] = col
			delete(dateCols, name)
			continue
		}
		columns[j] = inferColumn(name, cells)
	}

	for _, name := range opts.DateColumns {
		if dateCols[name] {
			return nil, &ParseError{Line: 1, Column: name, Err: ErrColumnNotFound}
		}
	}

	t, err := New(columns...)
	if err != nil {
		return nil, err
	}
	t.rows = len(records)
	if len(opts.DateColumns) > 0 {
		t.dateColumn = opts.DateColumns[0]
	}
	return t, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return err
}

// uniqueHeader trims header names and suffixes repeats as name.1, name.2, ...
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		out[i] = name
	}
	return out
}

func parseTimeColumn(name string, cells []string, lines []int) (*Column, error) {
	times := make([]pgtype.Timestamp, len(cells))
	for i, v := range cells {
		if IsNA(v) {
			continue
		}
		ts, ok := ParseTime(v)
		if !ok {
			return nil, &ParseError{Line: lines[i], Column: name, Value: v, Err: ErrInvalidDate}
		}
		times[i] = pgtype.Timestamp{Time: ts, Valid: true}
	}
	return NewTimeColumn(name, times), nil
}

// inferColumn returns an integer column when every non-missing cell is an
// integer, a numeric column when every one is a number, otherwise a text
// column. A column with no values at all is text.
func inferColumn(name string, cells []string) *Column {
	present := 0
	for _, v := range cells {
		if !IsNA(v) {
			present++
		}
	}
	if present == 0 {
		return newTextColumn(name, cells, IsNA)
	}
	if ints, ok := integerCells(cells); ok {
		return NewIntegerColumn(name, ints)
	}
	if nums, ok := floatCells(cells); ok {
		return NewNumberColumn(name, nums)
	}
	return newTextColumn(name, cells, IsNA)
}

func integerCells(cells []string) ([]pgtype.Int8, bool) {
	ints := make([]pgtype.Int8, len(cells))
	for i, v := range cells {
		if IsNA(v) {
			continue
		}
		n, ok := ParseInt(v)
		if !ok {
			return nil, false
		}
		ints[i] = pgtype.Int8{Int64: n, Valid: true}
	}
	return ints, true
}

func floatCells(cells []string) ([]pgtype.Float8, bool) {
	nums := make([]pgtype.Float8, len(cells))
	for i, v := range cells {
		if IsNA(v) {
			continue
		}
		f, ok := ParseFloat(v)
		if !ok {
			return nil, false
		}
		nums[i] = pgtype.Float8{Float64: f, Valid: true}
	}
	return nums, true
}
