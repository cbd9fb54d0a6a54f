package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return b.String()
}

func TestErrorPage_Escapes(t *testing.T) {
	got := renderString(t, ErrorPage("<script>x</script>", "", "E1"))
	if strings.Contains(got, "<script>") {
		t.Errorf("message not escaped: %s", got)
	}
	if !strings.Contains(got, "Code: E1") {
		t.Errorf("code missing: %s", got)
	}
	if strings.Contains(got, "<p></p>") {
		t.Error("empty action rendered")
	}
}

func TestDashboard(t *testing.T) {
	loaded := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		tables []TableInfo
		want   []string
	}{
		{
			name:   "empty",
			tables: nil,
			want:   []string{"<title>acme/prices</title>", "0 tables, loaded 2024-03-01T12:00:00Z", "No tables loaded."},
		},
		{
			name: "links and escapes keys",
			tables: []TableInfo{
				{Key: "A&B", Rows: 3, Columns: []ColumnInfo{{"Date", "time"}}, FirstDate: "2020-01-01", LastDate: "2020-01-03"},
			},
			want: []string{`href="/tables/A&amp;B?page=1"`, ">A&amp;B</a>", `<td class="number">3</td>`, "2020-01-03"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderString(t, Dashboard("acme/prices", loaded, tt.tables))
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in %s", w, got)
				}
			}
		})
	}
}

func TestTableView(t *testing.T) {
	p := TablePageParams{
		Table: TableInfo{
			Key:     "AAPL",
			Rows:    5,
			Columns: []ColumnInfo{{"Date", "time"}, {"Close", "number"}, {"Volume", "integer"}, {"Ticker", "text"}},
		},
		Rows:       [][]string{{"2020-01-03", "3.5", "300", "AAPL"}},
		Page:       2,
		PageSize:   2,
		TotalPages: 3,
	}

	got := renderString(t, TableView(p))
	for _, w := range []string{
		"5 rows, page 2 of 3",
		`<th title="integer">Volume</th>`,
		`<td class="number">3.5</td>`,
		`<td class="number">300</td>`,
		"<td>AAPL</td>",
		`href="/tables/AAPL?page=1&amp;page_size=2"`,
		`href="/tables/AAPL?page=3&amp;page_size=2"`,
	} {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in %s", w, got)
		}
	}

	p.Page, p.TotalPages = 1, 1
	got = renderString(t, TableView(p))
	if strings.Contains(got, "Previous") || strings.Contains(got, "Next") {
		t.Errorf("single page shows navigation: %s", got)
	}
}
