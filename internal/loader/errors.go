package loader

import "fmt"

// AuthenticationError is returned by New when the dataset host rejects or
// lacks credentials. No Loader is created.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// DownloadError is returned when the remote fetch fails. Nothing is retried.
type DownloadError struct {
	Dataset string
	Dir     string
	Err     error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download dataset %s into %s: %v", e.Dataset, e.Dir, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// NotFoundError is returned when no CSV files exist under Path, including
// when Path itself is missing. Path is absolute.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no CSV files found under %s", e.Path)
}

// ParseError is returned when a file's content cannot be read into a table.
// Err is usually a *table.ParseError carrying the line and column.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SortError is returned when rows cannot be ordered by the date column.
type SortError struct {
	File   string
	Column string
	Err    error
}

func (e *SortError) Error() string {
	return fmt.Sprintf("sort %s by %q: %v", e.File, e.Column, e.Err)
}

func (e *SortError) Unwrap() error { return e.Err }

// CollisionError is returned under CollisionFail when two files share a key.
type CollisionError struct {
	Key    string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("key %q is produced by both %s and %s", e.Key, e.First, e.Second)
}
