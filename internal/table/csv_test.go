package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadCSV_InfersKinds(t *testing.T) {
	input := "Date,Open,Symbol,Note\n2020-01-03,10.5,AAA,\n2020-01-02,11,AAA,split\n"

	tbl, err := ReadCSV(strings.NewReader(input), ReadOptions{DateColumns: []string{"Date"}})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	if got := strings.Join(tbl.Columns(), ","); got != "Date,Open,Symbol,Note" {
		t.Errorf("Columns() = %s", got)
	}
	if tbl.DateColumn() != "Date" {
		t.Errorf("DateColumn() = %q, want Date", tbl.DateColumn())
	}

	wantKinds := map[string]Kind{"Date": KindTime, "Open": KindNumber, "Symbol": KindText, "Note": KindText}
	for name, want := range wantKinds {
		col, ok := tbl.Column(name)
		if !ok {
			t.Fatalf("column %q missing", name)
		}
		if col.Kind != want {
			t.Errorf("column %q kind = %v, want %v", name, col.Kind, want)
		}
	}

	open, _ := tbl.Column("Open")
	if f, ok := open.Float(1); !ok || f != 11 {
		t.Errorf("Open[1] = %v, %v; want 11, true", f, ok)
	}
	note, _ := tbl.Column("Note")
	if !note.IsNull(0) {
		t.Error("empty Note cell should be null")
	}
	date, _ := tbl.Column("Date")
	if ts, ok := date.Time(0); !ok || !ts.Equal(time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date[0] = %v, %v", ts, ok)
	}
}

func TestReadCSV_DatesNotParsedStayText(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Date,Close\n2020-01-02,1\n"), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	col, _ := tbl.Column("Date")
	if col.Kind != KindText {
		t.Errorf("Date kind = %v, want text", col.Kind)
	}
	if tbl.DateColumn() != "" {
		t.Errorf("DateColumn() = %q, want empty", tbl.DateColumn())
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     ReadOptions
		wantErr  error
		wantLine int
	}{
		{
			name:     "empty input",
			input:    "",
			wantErr:  ErrNoHeader,
			wantLine: 1,
		},
		{
			name:     "invalid date",
			input:    "Date,Close\n2020-01-02,1\nnot-a-date,2\n",
			opts:     ReadOptions{DateColumns: []string{"Date"}},
			wantErr:  ErrInvalidDate,
			wantLine: 3,
		},
		{
			name:     "missing date column",
			input:    "Day,Close\n2020-01-02,1\n",
			opts:     ReadOptions{DateColumns: []string{"Date"}},
			wantErr:  ErrColumnNotFound,
			wantLine: 1,
		},
		{
			name:     "row wider than header",
			input:    "a,b\n1,2\n1,2,3\n",
			wantErr:  ErrTooManyFields,
			wantLine: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input), tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if pe.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", pe.Line, tt.wantLine)
			}
		})
	}
}

func TestReadCSV_ShortRowsPadded(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a,b,c\n1,2\n"), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	c, _ := tbl.Column("c")
	if !c.IsNull(0) {
		t.Error("missing trailing field should be null")
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("Date,Close\n"), ReadOptions{DateColumns: []string{"Date"}})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if tbl.Len() != 0 || tbl.NumColumns() != 2 {
		t.Errorf("got %d rows x %d columns, want 0 x 2", tbl.Len(), tbl.NumColumns())
	}
}

func TestReadCSV_BOMAndDuplicateHeaders(t *testing.T) {
	input := "\xEF\xBB\xBFDate,x,x\n2020-01-01,1,2\n"
	tbl, err := ReadCSV(strings.NewReader(input), ReadOptions{DateColumns: []string{"Date"}})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if got := strings.Join(tbl.Columns(), ","); got != "Date,x,x.1" {
		t.Errorf("Columns() = %s, want Date,x,x.1", got)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AAPL.csv")
	if err := os.WriteFile(path, []byte("Date,Close\n2021-05-04,127.85\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := ReadFile(path, ReadOptions{DateColumns: []string{"Date"}})
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"), ReadOptions{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v, want ErrNotExist", err)
	}
}

func TestReadCSV_MissingValueMarkers(t *testing.T) {
	input := "Date,Close,Volume,Note\n" +
		"2020-01-03,2.5,300,ok\n" +
		"NaN,null,NA,N/A\n" +
		"2020-01-01,1.5,#N/A,None\n"

	tbl, err := ReadCSV(strings.NewReader(input), ReadOptions{DateColumns: []string{"Date"}})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}

	wantKinds := map[string]Kind{"Date": KindTime, "Close": KindNumber, "Volume": KindInteger, "Note": KindText}
	for name, want := range wantKinds {
		col, _ := tbl.Column(name)
		if col.Kind != want {
			t.Errorf("column %q kind = %v, want %v", name, col.Kind, want)
		}
		if !col.IsNull(1) {
			t.Errorf("column %q row 1 should be null", name)
		}
	}

	vol, _ := tbl.Column("Volume")
	if !vol.IsNull(2) {
		t.Error("#N/A Volume should be null")
	}
	note, _ := tbl.Column("Note")
	if !note.IsNull(2) {
		t.Error("None Note should be null")
	}

	if err := tbl.SortBy("Date"); err != nil {
		t.Fatal(err)
	}
	date, _ := tbl.Column("Date")
	if !date.IsNull(2) {
		t.Error("NaN date should sort last")
	}
	closeCol, _ := tbl.Column("Close")
	if f, _ := closeCol.Float(0); f != 1.5 {
		t.Errorf("Close[0] = %v, want 1.5", f)
	}
}

func TestReadCSV_IntegerColumns(t *testing.T) {
	tests := []struct {
		name  string
		cells string
		want  Kind
	}{
		{"integers", "1\n-2\n+3\n", KindInteger},
		{"beyond float precision", "9007199254740993\n1\n", KindInteger},
		{"mixed with decimals", "1\n2.5\n", KindNumber},
		{"exponent", "1e3\n2\n", KindNumber},
		{"int overflow falls to float", "99999999999999999999\n1\n", KindNumber},
		{"all missing", "NA\n\n", KindText},
		{"words", "1\ntwo\n", KindText},
		{"lowercase na is data", "1\nna\n", KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadCSV(strings.NewReader("v\n"+tt.cells), ReadOptions{})
			if err != nil {
				t.Fatalf("ReadCSV() error = %v", err)
			}
			col, _ := tbl.Column("v")
			if col.Kind != tt.want {
				t.Errorf("kind = %v, want %v", col.Kind, tt.want)
			}
		})
	}

	tbl, err := ReadCSV(strings.NewReader("v\n9007199254740993\n"), ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	col, _ := tbl.Column("v")
	if n, ok := col.Int(0); !ok || n != 9007199254740993 {
		t.Errorf("Int(0) = %d, %v", n, ok)
	}
	if got := col.Format(0); got != "9007199254740993" {
		t.Errorf("Format(0) = %q", got)
	}
	if got := tbl.Record(0)["v"]; got != int64(9007199254740993) {
		t.Errorf("Record v = %v (%T)", got, got)
	}
}
