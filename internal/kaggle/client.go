// Package kaggle is a minimal client for the Kaggle public API: credential
// verification and dataset archive download.
package kaggle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is the Kaggle API root.
const DefaultBaseURL = "https://www.kaggle.com/api/v1"

var (
	ErrNoCredentials = errors.New("kaggle credentials not configured")
	ErrUnauthorized  = errors.New("kaggle rejected credentials")
	ErrNotFound      = errors.New("kaggle dataset not found")
	ErrInvalidRef    = errors.New("dataset reference must be owner/name")
)

// StatusError is returned for any other non-2xx API response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("kaggle api %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("kaggle api %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	Credentials Credentials
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Client talks to the Kaggle API with HTTP basic auth.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client. It does not contact the API; call Authenticate.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		creds:   opts.Credentials,
		http:    opts.HTTPClient,
		logger:  opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: opts.Timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Authenticate verifies the configured credentials with a cheap list call.
// Missing credentials fail without a request.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.creds.Empty() {
		return ErrNoCredentials
	}

	resp, err := c.get(ctx, "/datasets/list", url.Values{"page": {"1"}, "search": {""}})
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	defer drainClose(resp.Body)

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	c.logger.Debug("kaggle credentials verified", "username", c.creds.Username)
	return nil
}

// DownloadDataset fetches the archive for ref ("owner/name") into dir as
// <name>.zip. With unzip, the archive is extracted into dir and removed.
func (c *Client) DownloadDataset(ctx context.Context, ref, dir string, unzip bool) error {
	owner, name, err := ParseRef(ref)
	if err != nil {
		return err
	}

	resp, err := c.get(ctx, "/datasets/download/"+url.PathEscape(owner)+"/"+url.PathEscape(name), nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", ref, err)
	}
	defer drainClose(resp.Body)

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("download %s: %w", ref, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("download %s: %w", ref, err)
	}
	archive := filepath.Join(dir, name+".zip")
	written, err := writeAtomic(archive, resp.Body)
	if err != nil {
		return fmt.Errorf("download %s: %w", ref, err)
	}
	c.logger.Info("dataset archive downloaded", "dataset", ref, "path", archive, "bytes", written)

	if !unzip {
		return nil
	}

	files, err := ExtractZip(archive, dir)
	if err != nil {
		return fmt.Errorf("extract %s: %w", archive, err)
	}
	if err := os.Remove(archive); err != nil {
		return fmt.Errorf("remove archive: %w", err)
	}
	c.logger.Info("dataset archive extracted", "dataset", ref, "dir", dir, "files", files)
	return nil
}

// ParseRef splits "owner/name" and rejects anything else.
func ParseRef(ref string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(ref), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return owner, name, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Key)
	req.Header.Set("User-Agent", "datasetloader/1.0")

	return c.http.Do(req)
}

// checkStatus maps non-2xx responses onto the package errors.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return &StatusError{StatusCode: resp.StatusCode, URL: resp.Request.URL.Redacted(), Body: msg}
	}
}

// writeAtomic streams r into a temporary file next to path, then renames it.
func writeAtomic(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return n, err
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}
	return n, os.Rename(tmp.Name(), path)
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
