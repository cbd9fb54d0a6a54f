package table

import (
	"cmp"
	"fmt"
	"slices"
)

// SortBy stably reorders all rows by the named column, ascending, nulls last.
// Numeric and timestamp columns compare by value, text columns lexically.
func (t *Table) SortBy(name string) error {
	col, ok := t.Column(name)
	if !ok {
		return fmt.Errorf("sort by %q: %w", name, ErrColumnNotFound)
	}

	order := make([]int, t.rows)
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		nullA, nullB := col.IsNull(a), col.IsNull(b)
		switch {
		case nullA && nullB:
			return 0
		case nullA:
			return 1
		case nullB:
			return -1
		}
		return compareCells(col, a, b)
	})

	for _, c := range t.columns {
		c.permute(order)
	}
	return nil
}

// compareCells compares two non-null cells of the same column.
func compareCells(c *Column, a, b int) int {
	switch c.Kind {
	case KindNumber:
		return cmp.Compare(c.nums[a].Float64, c.nums[b].Float64)
	case KindInteger:
		return cmp.Compare(c.ints[a].Int64, c.ints[b].Int64)
	case KindTime:
		return c.times[a].Time.Compare(c.times[b].Time)
	default:
		return cmp.Compare(c.text[a].String, c.text[b].String)
	}
}

// IsSortedBy reports whether rows are in ascending order of the named column
// with nulls last. It returns false for an unknown column.
func (t *Table) IsSortedBy(name string) bool {
	col, ok := t.Column(name)
	if !ok {
		return false
	}
	for i := 1; i < t.rows; i++ {
		if col.IsNull(i-1) {
			if !col.IsNull(i) {
				return false
			}
			continue
		}
		if col.IsNull(i) {
			continue
		}
		if compareCells(col, i-1, i) > 0 {
			return false
		}
	}
	return true
}
