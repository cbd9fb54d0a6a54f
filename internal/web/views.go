package web

import (
	"net/http"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datasetloader/internal/logging"
	"github.com/JonMunkholm/datasetloader/internal/web/templates"
)

// render writes c as an HTML page.
func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error", "error", err)
	}
}

func tableInfo(sum TableSummary) templates.TableInfo {
	info := templates.TableInfo{
		Key:       sum.Key,
		Rows:      sum.Rows,
		FirstDate: sum.FirstDate,
		LastDate:  sum.LastDate,
	}
	for _, c := range sum.Columns {
		info.Columns = append(info.Columns, templates.ColumnInfo{Name: c.Name, Kind: c.Kind})
	}
	return info
}

func tableInfos(sums []TableSummary) []templates.TableInfo {
	out := make([]templates.TableInfo, len(sums))
	for i, s := range sums {
		out[i] = tableInfo(s)
	}
	return out
}
