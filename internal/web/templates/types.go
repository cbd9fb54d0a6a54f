package templates

import (
	"net/url"
	"strconv"
)

// ColumnInfo is a column header and its kind.
type ColumnInfo struct {
	Name string
	Kind string
}

// TableInfo summarizes a loaded table.
type TableInfo struct {
	Key       string
	Rows      int
	Columns   []ColumnInfo
	FirstDate string
	LastDate  string
}

// TablePageParams holds one page of formatted rows.
type TablePageParams struct {
	Table      TableInfo
	Rows       [][]string
	Page       int
	PageSize   int
	TotalPages int
}

// numeric reports whether column j is right-aligned.
func (p TablePageParams) numeric(j int) bool {
	if j >= len(p.Table.Columns) {
		return false
	}
	k := p.Table.Columns[j].Kind
	return k == "number" || k == "integer"
}

func tableURL(key string, page int) string {
	return "/tables/" + url.PathEscape(key) + "?page=" + strconv.Itoa(page)
}

func pageURL(key string, page, size int) string {
	return tableURL(key, page) + "&page_size=" + strconv.Itoa(size)
}
