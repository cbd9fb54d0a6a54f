package table

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTime
	KindInteger
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	case KindInteger:
		return "integer"
	default:
		return "text"
	}
}

// Numeric reports whether k holds numbers.
func (k Kind) Numeric() bool {
	return k == KindNumber || k == KindInteger
}

// Column is a named, typed sequence of nullable cells.
// Exactly one of the backing slices is populated, matching Kind.
type Column struct {
	Name string
	Kind Kind

	text  []pgtype.Text
	nums  []pgtype.Float8
	ints  []pgtype.Int8
	times []pgtype.Timestamp
}

// NewTextColumn builds a text column; empty strings become null.
func NewTextColumn(name string, values []string) *Column {
	return newTextColumn(name, values, func(v string) bool { return v == "" })
}

func newTextColumn(name string, values []string, null func(string) bool) *Column {
	cells := make([]pgtype.Text, len(values))
	for i, v := range values {
		cells[i] = pgtype.Text{String: v, Valid: !null(v)}
	}
	return &Column{Name: name, Kind: KindText, text: cells}
}

// NewNumberColumn builds a numeric column from already-validated cells.
func NewNumberColumn(name string, cells []pgtype.Float8) *Column {
	return &Column{Name: name, Kind: KindNumber, nums: cells}
}

// NewIntegerColumn builds an integer column from already-validated cells.
func NewIntegerColumn(name string, cells []pgtype.Int8) *Column {
	return &Column{Name: name, Kind: KindInteger, ints: cells}
}

// NewTimeColumn builds a timestamp column from already-validated cells.
func NewTimeColumn(name string, cells []pgtype.Timestamp) *Column {
	return &Column{Name: name, Kind: KindTime, times: cells}
}

// Len returns the number of cells.
func (c *Column) Len() int {
	switch c.Kind {
	case KindNumber:
		return len(c.nums)
	case KindInteger:
		return len(c.ints)
	case KindTime:
		return len(c.times)
	default:
		return len(c.text)
	}
}

// IsNull reports whether cell i is null.
func (c *Column) IsNull(i int) bool {
	switch c.Kind {
	case KindNumber:
		return !c.nums[i].Valid
	case KindInteger:
		return !c.ints[i].Valid
	case KindTime:
		return !c.times[i].Valid
	default:
		return !c.text[i].Valid
	}
}

// Value returns cell i as its pgtype value.
func (c *Column) Value(i int) any {
	switch c.Kind {
	case KindNumber:
		return c.nums[i]
	case KindInteger:
		return c.ints[i]
	case KindTime:
		return c.times[i]
	default:
		return c.text[i]
	}
}

// Text returns cell i of a text column.
func (c *Column) Text(i int) (string, bool) {
	if c.Kind != KindText || !c.text[i].Valid {
		return "", false
	}
	return c.text[i].String, true
}

// Float returns cell i of a numeric column. Integer cells are converted.
func (c *Column) Float(i int) (float64, bool) {
	switch {
	case c.Kind == KindNumber && c.nums[i].Valid:
		return c.nums[i].Float64, true
	case c.Kind == KindInteger && c.ints[i].Valid:
		return float64(c.ints[i].Int64), true
	}
	return 0, false
}

// Int returns cell i of an integer column.
func (c *Column) Int(i int) (int64, bool) {
	if c.Kind != KindInteger || !c.ints[i].Valid {
		return 0, false
	}
	return c.ints[i].Int64, true
}

// Time returns cell i of a timestamp column.
func (c *Column) Time(i int) (time.Time, bool) {
	if c.Kind != KindTime || !c.times[i].Valid {
		return time.Time{}, false
	}
	return c.times[i].Time, true
}

// Native returns cell i as a plain Go value (string, float64, int64 or
// time.Time), or nil if null.
func (c *Column) Native(i int) any {
	if c.IsNull(i) {
		return nil
	}
	switch c.Kind {
	case KindNumber:
		return c.nums[i].Float64
	case KindInteger:
		return c.ints[i].Int64
	case KindTime:
		return c.times[i].Time
	default:
		return c.text[i].String
	}
}

// Format renders cell i for display; null renders as "".
func (c *Column) Format(i int) string {
	if c.IsNull(i) {
		return ""
	}
	switch c.Kind {
	case KindNumber:
		return FormatFloat(c.nums[i].Float64)
	case KindInteger:
		return strconv.FormatInt(c.ints[i].Int64, 10)
	case KindTime:
		return FormatTime(c.times[i].Time)
	default:
		return c.text[i].String
	}
}

// permute reorders the cells so that new cell i is old cell order[i].
func (c *Column) permute(order []int) {
	switch c.Kind {
	case KindNumber:
		c.nums = reorder(c.nums, order)
	case KindInteger:
		c.ints = reorder(c.ints, order)
	case KindTime:
		c.times = reorder(c.times, order)
	default:
		c.text = reorder(c.text, order)
	}
}

func reorder[T any](cells []T, order []int) []T {
	out := make([]T, len(cells))
	for i, from := range order {
		out[i] = cells[from]
	}
	return out
}

// Table is an ordered set of equal-length columns.
type Table struct {
	columns    []*Column
	index      map[string]int
	rows       int
	dateColumn string
}

// New assembles a table from columns of equal length.
func New(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if err := t.addColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) addColumn(c *Column) error {
	if len(t.columns) > 0 && c.Len() != t.rows {
		return fmt.Errorf("column %q has %d cells, table has %d rows", c.Name, c.Len(), t.rows)
	}
	if len(t.columns) == 0 {
		t.rows = c.Len()
	}
	if i, ok := t.index[c.Name]; ok {
		t.columns[i] = c
		return nil
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// ColumnAt returns the column at position i.
func (t *Table) ColumnAt(i int) *Column {
	return t.columns[i]
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Row returns row i as pgtype values in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Value(i)
	}
	return row
}

// Record returns row i as plain Go values keyed by column name.
func (t *Table) Record(i int) map[string]any {
	rec := make(map[string]any, len(t.columns))
	for _, c := range t.columns {
		rec[c.Name] = c.Native(i)
	}
	return rec
}

// Value returns the pgtype value of the named column in row i.
func (t *Table) Value(i int, name string) (any, bool) {
	c, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	return c.Value(i), true
}

// DateColumn returns the name of the column parsed as dates, or "" if none.
func (t *Table) DateColumn() string {
	return t.dateColumn
}

// SetDateColumn marks an existing timestamp column as the date column.
func (t *Table) SetDateColumn(name string) error {
	c, ok := t.Column(name)
	if !ok {
		return fmt.Errorf("date column %q: %w", name, ErrColumnNotFound)
	}
	if c.Kind != KindTime {
		return fmt.Errorf("date column %q has kind %s", name, c.Kind)
	}
	t.dateColumn = name
	return nil
}

// SetConstant sets column name to value on every row, replacing any
// existing column with that name in place.
func (t *Table) SetConstant(name, value string) {
	values := make([]string, t.rows)
	for i := range values {
		values[i] = value
	}
	if name == t.dateColumn {
		t.dateColumn = ""
	}
	// lengths match by construction
	_ = t.addColumn(NewTextColumn(name, values))
}
