package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datasetloader/internal/loader"
	"github.com/JonMunkholm/datasetloader/internal/logging"
	"github.com/JonMunkholm/datasetloader/internal/table"
	"github.com/JonMunkholm/datasetloader/internal/web/templates"
)

// TableSummary describes one loaded table.
type TableSummary struct {
	Key        string   `json:"key"`
	Rows       int      `json:"rows"`
	Columns    []Column `json:"columns"`
	DateColumn string   `json:"date_column,omitempty"`
	FirstDate  string   `json:"first_date,omitempty"`
	LastDate   string   `json:"last_date,omitempty"`
}

// Column is a column name and its kind.
type Column struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// TablesResponse is returned by GET /api/tables.
type TablesResponse struct {
	Dataset  string         `json:"dataset"`
	LoadedAt time.Time      `json:"loaded_at"`
	Tables   []TableSummary `json:"tables"`
}

// TableResponse is one page of rows from GET /api/tables/{key}.
type TableResponse struct {
	TableSummary
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
	Data       []map[string]any `json:"data"`
}

// ReloadResponse is returned by POST /api/reload.
type ReloadResponse struct {
	Tables   int       `json:"tables"`
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rs, loadedAt := s.snapshot()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"tables":    len(rs),
		"loaded_at": loadedAt,
	})
}

// handleListTables returns a summary of every loaded table.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	rs, loadedAt := s.snapshot()
	writeJSON(w, r, http.StatusOK, TablesResponse{
		Dataset:  s.dataset,
		LoadedAt: loadedAt,
		Tables:   summaries(rs),
	})
}

// handleGetTable returns one page of rows as JSON objects keyed by column name.
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rs, _ := s.snapshot()
	t, ok := rs[key]
	if !ok {
		s.respondError(w, r, errTableNotFound)
		return
	}

	p := s.pageParams(r, t.Len())
	data := make([]map[string]any, 0, p.end-p.start)
	for i := p.start; i < p.end; i++ {
		data = append(data, t.Record(i))
	}

	writeJSON(w, r, http.StatusOK, TableResponse{
		TableSummary: summarize(key, t),
		Page:         p.page,
		PageSize:     p.size,
		TotalPages:   p.pages,
		Data:         data,
	})
}

// handleReload re-runs the load and replaces the served tables.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	logger.Info("reload requested")

	rs, err := s.reload(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	_, loadedAt := s.snapshot()
	logger.Info("reload complete", "tables", len(rs), "rows", rs.Rows())
	writeJSON(w, r, http.StatusOK, ReloadResponse{
		Tables:   len(rs),
		Rows:     rs.Rows(),
		LoadedAt: loadedAt,
	})
}

// handleDashboard renders the list of tables.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rs, loadedAt := s.snapshot()
	render(w, r, templates.Dashboard(s.dataset, loadedAt, tableInfos(summaries(rs))))
}

// handleTableView renders one page of a table.
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rs, _ := s.snapshot()
	t, ok := rs[key]
	if !ok {
		s.respondError(w, r, errTableNotFound)
		return
	}

	p := s.pageParams(r, t.Len())
	view := templates.TablePageParams{
		Table:      tableInfo(summarize(key, t)),
		Page:       p.page,
		TotalPages: p.pages,
		PageSize:   p.size,
	}
	for i := p.start; i < p.end; i++ {
		row := make([]string, t.NumColumns())
		for j := range row {
			row[j] = t.ColumnAt(j).Format(i)
		}
		view.Rows = append(view.Rows, row)
	}
	render(w, r, templates.TableView(view))
}

type pageWindow struct {
	page, size, pages int
	start, end        int
}

// pageParams reads page and page_size, clamping both to valid ranges.
func (s *Server) pageParams(r *http.Request, total int) pageWindow {
	size := parseIntParam(r, "page_size", s.cfg.PageSize)
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return paginate(total, parseIntParam(r, "page", 1), size)
}

// paginate computes the row window for a 1-based page. Pages past the end
// are clamped to the last page.
func paginate(total, page, size int) pageWindow {
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, total)
	return pageWindow{page: page, size: size, pages: pages, start: start, end: end}
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func summaries(rs loader.ResultSet) []TableSummary {
	out := make([]TableSummary, 0, len(rs))
	for _, key := range rs.Keys() {
		out = append(out, summarize(key, rs[key]))
	}
	return out
}

func summarize(key string, t *table.Table) TableSummary {
	sum := TableSummary{Key: key, Rows: t.Len(), DateColumn: t.DateColumn()}
	for i := 0; i < t.NumColumns(); i++ {
		c := t.ColumnAt(i)
		sum.Columns = append(sum.Columns, Column{Name: c.Name, Kind: c.Kind.String()})
	}
	if col, ok := t.Column(sum.DateColumn); ok && col.Kind == table.KindTime {
		sum.FirstDate, sum.LastDate = dateRange(col)
	}
	return sum
}

// dateRange returns the first and last non-null dates of a sorted column.
func dateRange(c *table.Column) (first, last string) {
	for i := 0; i < c.Len(); i++ {
		if !c.IsNull(i) {
			first = c.Format(i)
			break
		}
	}
	for i := c.Len() - 1; i >= 0; i-- {
		if !c.IsNull(i) {
			last = c.Format(i)
			break
		}
	}
	return first, last
}
