package loader

import (
	"fmt"
	"strings"
)

// SortPolicy controls when loaded tables are ordered by the date column.
type SortPolicy int

const (
	// SortAlways sorts every table, as text when date parsing is disabled.
	SortAlways SortPolicy = iota
	// SortWhenParsed sorts only when date parsing is enabled.
	SortWhenParsed
	// SortNever keeps file order.
	SortNever
)

func (p SortPolicy) String() string {
	switch p {
	case SortAlways:
		return "always"
	case SortWhenParsed:
		return "parsed"
	case SortNever:
		return "never"
	default:
		return fmt.Sprintf("SortPolicy(%d)", int(p))
	}
}

// ParseSortPolicy maps always, parsed, or never onto a SortPolicy.
// An empty string selects SortAlways.
func ParseSortPolicy(s string) (SortPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return SortAlways, nil
	case "parsed":
		return SortWhenParsed, nil
	case "never":
		return SortNever, nil
	}
	return SortAlways, fmt.Errorf("unknown sort policy %q", s)
}

// CollisionPolicy controls what happens when two files share a base name.
type CollisionPolicy int

const (
	// CollisionOverwrite keeps the file discovered last.
	CollisionOverwrite CollisionPolicy = iota
	// CollisionFail aborts the load with a CollisionError.
	CollisionFail
)

func (p CollisionPolicy) String() string {
	switch p {
	case CollisionOverwrite:
		return "overwrite"
	case CollisionFail:
		return "fail"
	default:
		return fmt.Sprintf("CollisionPolicy(%d)", int(p))
	}
}

// ParseCollisionPolicy maps overwrite or fail onto a CollisionPolicy.
// An empty string selects CollisionOverwrite.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return CollisionOverwrite, nil
	case "fail":
		return CollisionFail, nil
	}
	return CollisionOverwrite, fmt.Errorf("unknown collision policy %q", s)
}
