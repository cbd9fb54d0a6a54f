package table

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func mustRead(t *testing.T, input string, dateCols ...string) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(input), ReadOptions{DateColumns: dateCols})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	return tbl
}

func TestSortBy_ReverseChronological(t *testing.T) {
	tbl := mustRead(t, "Date,Close\n2020-01-05,5\n2020-01-04,4\n2020-01-03,3\n2020-01-02,2\n", "Date")

	if err := tbl.SortBy("Date"); err != nil {
		t.Fatalf("SortBy() error = %v", err)
	}
	if !tbl.IsSortedBy("Date") {
		t.Fatal("table not sorted by Date")
	}

	// rows move together
	closeCol, _ := tbl.Column("Close")
	for i, want := range []float64{2, 3, 4, 5} {
		if got, _ := closeCol.Float(i); got != want {
			t.Errorf("Close[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestSortBy_NullsLast(t *testing.T) {
	tbl := mustRead(t, "Date,v\n,a\n2020-01-02,b\n2020-01-01,c\n", "Date")

	if err := tbl.SortBy("Date"); err != nil {
		t.Fatalf("SortBy() error = %v", err)
	}
	date, _ := tbl.Column("Date")
	if !date.IsNull(2) {
		t.Error("null date should sort last")
	}
	v, _ := tbl.Column("v")
	if got, _ := v.Text(0); got != "c" {
		t.Errorf("v[0] = %q, want c", got)
	}
}

func TestSortBy_TextAndNumber(t *testing.T) {
	tbl := mustRead(t, "name,n\nb,10\na,9\nc,-1\n")

	if err := tbl.SortBy("n"); err != nil {
		t.Fatal(err)
	}
	name, _ := tbl.Column("name")
	if got := []string{name.Format(0), name.Format(1), name.Format(2)}; strings.Join(got, "") != "cab" {
		t.Errorf("numeric sort order = %v, want [c a b]", got)
	}

	if err := tbl.SortBy("name"); err != nil {
		t.Fatal(err)
	}
	if !tbl.IsSortedBy("name") {
		t.Error("table not sorted by name")
	}
}

func TestSortBy_MissingColumn(t *testing.T) {
	tbl := mustRead(t, "a\n1\n")
	if err := tbl.SortBy("Date"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("SortBy(missing) error = %v, want ErrColumnNotFound", err)
	}
}

func TestSetConstant(t *testing.T) {
	tbl := mustRead(t, "Date,Close\n2020-01-01,1\n2020-01-02,2\n2020-01-03,3\n", "Date")

	tbl.SetConstant("Ticker", "AAPL")

	col, ok := tbl.Column("Ticker")
	if !ok {
		t.Fatal("Ticker column missing")
	}
	for i := 0; i < tbl.Len(); i++ {
		if got, _ := col.Text(i); got != "AAPL" {
			t.Errorf("Ticker[%d] = %q, want AAPL", i, got)
		}
	}
	if tbl.NumColumns() != 3 {
		t.Errorf("NumColumns() = %d, want 3", tbl.NumColumns())
	}

	// replacing keeps position and width
	tbl.SetConstant("Ticker", "MSFT")
	if tbl.NumColumns() != 3 {
		t.Errorf("NumColumns() after replace = %d, want 3", tbl.NumColumns())
	}
	if v, _ := tbl.Value(0, "Ticker"); v == nil {
		t.Error("Value(0, Ticker) = nil")
	}
}

func TestRowAndRecord(t *testing.T) {
	tbl := mustRead(t, "Date,Close,Name\n2020-01-01,1.5,x\n", "Date")

	row := tbl.Row(0)
	if len(row) != 3 {
		t.Fatalf("len(Row(0)) = %d, want 3", len(row))
	}

	rec := tbl.Record(0)
	if rec["Close"] != 1.5 {
		t.Errorf("Record Close = %v, want 1.5", rec["Close"])
	}
	if rec["Name"] != "x" {
		t.Errorf("Record Name = %v, want x", rec["Name"])
	}
	if ts, ok := rec["Date"].(time.Time); !ok || ts.Year() != 2020 {
		t.Errorf("Record Date = %v", rec["Date"])
	}
}

func TestNew_LengthMismatch(t *testing.T) {
	a := NewTextColumn("a", []string{"1", "2"})
	b := NewTextColumn("b", []string{"1"})
	if _, err := New(a, b); err == nil {
		t.Error("New() expected error for mismatched column lengths")
	}
}

func TestSetDateColumn(t *testing.T) {
	tbl := mustRead(t, "Date,Close\n2020-01-01,1\n")

	if err := tbl.SetDateColumn("Close"); err == nil {
		t.Error("SetDateColumn(Close) expected error for a number column")
	}
	if err := tbl.SetDateColumn("Missing"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("SetDateColumn(Missing) error = %v, want ErrColumnNotFound", err)
	}

	parsed := mustRead(t, "When,Close\n2020-01-01,1\n", "When")
	if err := parsed.SetDateColumn("When"); err != nil {
		t.Fatalf("SetDateColumn(When) error = %v", err)
	}
	if parsed.DateColumn() != "When" {
		t.Errorf("DateColumn() = %q", parsed.DateColumn())
	}
}
