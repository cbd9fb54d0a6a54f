package kaggle

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeKaggle serves the two endpoints the client uses.
func fakeKaggle(t *testing.T, archive []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/datasets/list", func(w http.ResponseWriter, r *http.Request) {
		user, key, ok := r.BasicAuth()
		if !ok || user != "alice" || key != "secret" {
			http.Error(w, `{"code":401}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	})
	mux.HandleFunc("/api/v1/datasets/download/acme/prices", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, creds Credentials) *Client {
	return NewClient(Options{BaseURL: srv.URL + "/api/v1/", Credentials: creds, HTTPClient: srv.Client()})
}

func TestAuthenticate(t *testing.T) {
	srv := fakeKaggle(t, nil)

	tests := []struct {
		name    string
		creds   Credentials
		wantErr error
	}{
		{"valid", Credentials{Username: "alice", Key: "secret"}, nil},
		{"rejected", Credentials{Username: "alice", Key: "wrong"}, ErrUnauthorized},
		{"missing", Credentials{}, ErrNoCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestClient(srv, tt.creds).Authenticate(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Authenticate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDownloadDataset_Unzip(t *testing.T) {
	archive := buildZip(t, map[string]string{
		"AAA.csv":        "Date,Close\n2020-01-01,1\n",
		"nested/BBB.csv": "Date,Close\n2020-01-01,2\n",
	})
	srv := fakeKaggle(t, archive)
	// target directory does not exist yet
	dir := filepath.Join(t.TempDir(), "data", "raw")

	c := newTestClient(srv, Credentials{Username: "alice", Key: "secret"})
	if err := c.DownloadDataset(context.Background(), "acme/prices", dir, true); err != nil {
		t.Fatalf("DownloadDataset() error = %v", err)
	}

	for _, rel := range []string{"AAA.csv", filepath.Join("nested", "BBB.csv")} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("expected extracted file %s: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "prices.zip")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("archive should be removed after extraction, stat err = %v", err)
	}
}

func TestDownloadDataset_KeepArchive(t *testing.T) {
	archive := buildZip(t, map[string]string{"AAA.csv": "Date\n"})
	srv := fakeKaggle(t, archive)
	dir := t.TempDir()

	c := newTestClient(srv, Credentials{Username: "alice", Key: "secret"})
	if err := c.DownloadDataset(context.Background(), "acme/prices", dir, false); err != nil {
		t.Fatalf("DownloadDataset() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "prices.zip"))
	if err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if !bytes.Equal(data, archive) {
		t.Error("archive content differs from served bytes")
	}
	if _, err := os.Stat(filepath.Join(dir, "AAA.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Error("nothing should be extracted when unzip is false")
	}
}

func TestDownloadDataset_Errors(t *testing.T) {
	srv := fakeKaggle(t, nil)
	c := newTestClient(srv, Credentials{Username: "alice", Key: "secret"})

	tests := []struct {
		name    string
		ref     string
		wantErr error
	}{
		{"bad ref", "prices", ErrInvalidRef},
		{"too many segments", "acme/prices/v2", ErrInvalidRef},
		{"unknown dataset", "acme/unknown", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.DownloadDataset(context.Background(), tt.ref, t.TempDir(), true)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DownloadDataset(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
			}
		})
	}
}

func TestDownloadDataset_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Credentials: Credentials{Username: "a", Key: "b"}, HTTPClient: srv.Client()})
	err := c.DownloadDataset(context.Background(), "acme/prices", t.TempDir(), true)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", se.StatusCode, http.StatusBadGateway)
	}
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	if err := os.WriteFile(src, buildZip(t, map[string]string{"../escape.csv": "x"}), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out")
	// the zip reader itself may refuse the entry before ExtractZip sees it
	if _, err := ExtractZip(src, dest); err == nil {
		t.Fatal("ExtractZip() expected error for ../ entry")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Error("traversal entry was written")
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		creds, err := LoadCredentials("u", "k", t.TempDir())
		if err != nil || creds.Username != "u" || creds.Key != "k" {
			t.Errorf("LoadCredentials() = %+v, %v", creds, err)
		}
	})

	t.Run("from kaggle.json", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, CredentialsFile), []byte(`{"username":"bob","key":"k2"}`), 0o600); err != nil {
			t.Fatal(err)
		}
		creds, err := LoadCredentials("", "", dir)
		if err != nil {
			t.Fatalf("LoadCredentials() error = %v", err)
		}
		if creds.Username != "bob" || creds.Key != "k2" {
			t.Errorf("creds = %+v", creds)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCredentials("", "", t.TempDir())
		if !errors.Is(err, ErrNoCredentials) {
			t.Errorf("error = %v, want ErrNoCredentials", err)
		}
	})

	t.Run("incomplete file", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, CredentialsFile), []byte(`{"username":"bob"}`), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadCredentials("", "", dir); !errors.Is(err, ErrNoCredentials) {
			t.Errorf("error = %v, want ErrNoCredentials", err)
		}
	})
}

func TestParseRef(t *testing.T) {
	owner, name, err := ParseRef("jacksoncrow/stock-market-dataset")
	if err != nil {
		t.Fatalf("ParseRef() error = %v", err)
	}
	if owner != "jacksoncrow" || name != "stock-market-dataset" {
		t.Errorf("ParseRef() = %q, %q", owner, name)
	}
}

func TestEntryPath(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"AAA.csv", false},
		{"nested/dir/BBB.csv", false},
		{"./CCC.csv", false},
		{"../escape.csv", true},
		{"nested/../../escape.csv", true},
	}
	for _, tt := range tests {
		_, err := entryPath(root, tt.name)
		if tt.wantErr != errors.Is(err, ErrUnsafePath) {
			t.Errorf("entryPath(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
