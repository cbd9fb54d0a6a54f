// Package loader fetches a remote dataset archive into a local directory and
// loads every CSV file found there into a table keyed by file base name.
//
// The pipeline is linear: New authenticates against the dataset host,
// DownloadDataset fetches only when no CSV files are present, and
// LoadCSVFiles parses, sorts, and tags each file. Run composes the last two.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/JonMunkholm/datasetloader/internal/config"
	"github.com/JonMunkholm/datasetloader/internal/table"
)

// Defaults applied by New to zero-valued Config fields.
const (
	DefaultDir          = "data/raw"
	DefaultDateColumn   = "Date"
	DefaultSourceColumn = "Ticker"
)

// ErrNoDataset is returned by New when Config.Dataset is empty.
var ErrNoDataset = errors.New("dataset identifier is required")

// DatasetHost is the remote marketplace the dataset is fetched from.
type DatasetHost interface {
	Authenticate(ctx context.Context) error
	DownloadDataset(ctx context.Context, ref, dir string, unzip bool) error
}

// Config describes one dataset and how its files are loaded.
type Config struct {
	Dataset      string
	Dir          string
	Unzip        bool
	ParseDates   bool
	DateColumn   string
	SourceColumn string
	Sort         SortPolicy
	OnCollision  CollisionPolicy
}

// ConfigFrom converts the environment-level dataset settings.
func ConfigFrom(c config.DatasetConfig) (Config, error) {
	sortPolicy, err := ParseSortPolicy(c.Sort)
	if err != nil {
		return Config{}, err
	}
	collision, err := ParseCollisionPolicy(c.OnCollision)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Dataset:      c.Name,
		Dir:          c.Dir,
		Unzip:        c.Unzip,
		ParseDates:   c.ParseDates,
		DateColumn:   c.DateColumn,
		SourceColumn: c.SourceColumn,
		Sort:         sortPolicy,
		OnCollision:  collision,
	}, nil
}

// ResultSet maps file base names to loaded tables.
type ResultSet map[string]*table.Table

// Keys returns the keys in lexical order.
func (rs ResultSet) Keys() []string {
	keys := make([]string, 0, len(rs))
	for k := range rs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Rows returns the total row count across all tables.
func (rs ResultSet) Rows() int {
	n := 0
	for _, t := range rs {
		n += t.Len()
	}
	return n
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger for informational notices.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// Loader downloads and loads one dataset. A Loader is not safe for
// concurrent use; callers serialize runs against the same directory.
type Loader struct {
	cfg    Config
	host   DatasetHost
	logger *slog.Logger
}

// New validates cfg, creates the storage directory, and authenticates with
// host. Authentication failures are returned as *AuthenticationError.
func New(ctx context.Context, cfg Config, host DatasetHost, opts ...Option) (*Loader, error) {
	if strings.TrimSpace(cfg.Dataset) == "" {
		return nil, ErrNoDataset
	}
	if host == nil {
		return nil, errors.New("dataset host is required")
	}
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.DateColumn == "" {
		cfg.DateColumn = DefaultDateColumn
	}
	if cfg.SourceColumn == "" {
		cfg.SourceColumn = DefaultSourceColumn
	}

	ld := &Loader{cfg: cfg, host: host, logger: slog.Default()}
	for _, opt := range opts {
		opt(ld)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", cfg.Dir, err)
	}

	if err := host.Authenticate(ctx); err != nil {
		return nil, &AuthenticationError{Err: err}
	}
	return ld, nil
}

// Config returns a copy of the loader's effective configuration.
func (l *Loader) Config() Config {
	return l.cfg
}

// DownloadDataset fetches the dataset unless a CSV file already exists
// anywhere under the storage directory.
func (l *Loader) DownloadDataset(ctx context.Context) error {
	files, err := l.findCSV()
	if err != nil {
		return fmt.Errorf("scan %s: %w", l.cfg.Dir, err)
	}
	if len(files) > 0 {
		l.logger.Info("CSV files already exist, skipping download",
			"dataset", l.cfg.Dataset, "dir", l.cfg.Dir, "files", len(files))
		return nil
	}

	l.logger.Info("downloading dataset", "dataset", l.cfg.Dataset, "dir", l.cfg.Dir)
	if err := l.host.DownloadDataset(ctx, l.cfg.Dataset, l.cfg.Dir, l.cfg.Unzip); err != nil {
		return &DownloadError{Dataset: l.cfg.Dataset, Dir: l.cfg.Dir, Err: err}
	}
	return nil
}

// LoadCSVFiles loads every CSV file under the storage directory. Any failure
// aborts the whole load and no tables are returned.
func (l *Loader) LoadCSVFiles(ctx context.Context) (ResultSet, error) {
	files, err := l.discover()
	if err != nil {
		return nil, err
	}

	rs := make(ResultSet, len(files))
	origin := make(map[string]string, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, t, err := l.loadFile(path)
		if err != nil {
			return nil, err
		}
		if err := l.insert(rs, origin, key, path, t); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// FileFailure records one file that could not be loaded.
type FileFailure struct {
	File string
	Err  error
}

// LoadReport is the outcome of LoadCSVFilesPartial.
type LoadReport struct {
	Tables   ResultSet
	Failures []FileFailure
}

// OK reports whether every file loaded.
func (r *LoadReport) OK() bool {
	return len(r.Failures) == 0
}

// LoadCSVFilesPartial behaves like LoadCSVFiles but keeps going after a file
// fails. Per-file errors are collected in the report; only discovery errors
// and cancellation are returned directly.
func (l *Loader) LoadCSVFilesPartial(ctx context.Context) (*LoadReport, error) {
	files, err := l.discover()
	if err != nil {
		return nil, err
	}

	report := &LoadReport{Tables: make(ResultSet, len(files))}
	origin := make(map[string]string, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, t, err := l.loadFile(path)
		if err == nil {
			err = l.insert(report.Tables, origin, key, path, t)
		}
		if err != nil {
			l.logger.Warn("skipping file", "file", path, "error", err)
			report.Failures = append(report.Failures, FileFailure{File: path, Err: err})
		}
	}
	return report, nil
}

// Run downloads the dataset if needed and loads it.
func (l *Loader) Run(ctx context.Context) (ResultSet, error) {
	if err := l.DownloadDataset(ctx); err != nil {
		return nil, err
	}
	return l.LoadCSVFiles(ctx)
}

// RunPartial is Run with LoadCSVFilesPartial as the load step.
func (l *Loader) RunPartial(ctx context.Context) (*LoadReport, error) {
	if err := l.DownloadDataset(ctx); err != nil {
		return nil, err
	}
	return l.LoadCSVFilesPartial(ctx)
}

func (l *Loader) discover() ([]string, error) {
	files, err := l.findCSV()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", l.cfg.Dir, err)
	}
	if len(files) == 0 {
		abs, err := filepath.Abs(l.cfg.Dir)
		if err != nil {
			abs = l.cfg.Dir
		}
		return nil, &NotFoundError{Path: abs}
	}
	return files, nil
}

func (l *Loader) loadFile(path string) (string, *table.Table, error) {
	key := fileKey(path)
	l.logger.Info("loading csv", "file", path, "key", key)

	opts := table.ReadOptions{}
	if l.cfg.ParseDates {
		opts.DateColumns = []string{l.cfg.DateColumn}
	}
	t, err := table.ReadFile(path, opts)
	if err != nil {
		return "", nil, &ParseError{File: path, Err: err}
	}

	if l.shouldSort() {
		if err := t.SortBy(l.cfg.DateColumn); err != nil {
			return "", nil, &SortError{File: path, Column: l.cfg.DateColumn, Err: err}
		}
	}

	t.SetConstant(l.cfg.SourceColumn, key)
	l.logger.Debug("csv loaded", "key", key, "rows", t.Len(), "columns", t.NumColumns())
	return key, t, nil
}

func (l *Loader) shouldSort() bool {
	switch l.cfg.Sort {
	case SortNever:
		return false
	case SortWhenParsed:
		return l.cfg.ParseDates
	default:
		return true
	}
}

func (l *Loader) insert(rs ResultSet, origin map[string]string, key, path string, t *table.Table) error {
	if prev, ok := origin[key]; ok {
		if l.cfg.OnCollision == CollisionFail {
			return &CollisionError{Key: key, First: prev, Second: path}
		}
		l.logger.Warn("duplicate key, replacing table", "key", key, "previous", prev, "file", path)
	}
	origin[key] = path
	rs[key] = t
	return nil
}

// findCSV walks the storage directory in lexical order and returns every
// file with a .csv extension, following symlinks to files. A missing storage
// directory yields no files.
func (l *Loader) findCSV() ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.cfg.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == l.cfg.Dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if filepath.Ext(path) != ".csv" {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func fileKey(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
