package kaggle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// ErrUnsafePath is returned for archive entries that would land outside the target directory.
var ErrUnsafePath = errors.New("archive entry escapes target directory")

// ExtractZip extracts every regular file in the archive at src into dest,
// preserving the directory layout. It returns the number of files written.
func ExtractZip(src, dest string) (int, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = zr.Close() }()

	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, err
	}

	files := 0
	for _, f := range zr.File {
		target, err := entryPath(root, f.Name)
		if err != nil {
			return files, err
		}

		mode := f.FileInfo().Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, err
			}
		case mode.IsRegular():
			if err := extractFile(f, target); err != nil {
				return files, fmt.Errorf("%s: %w", f.Name, err)
			}
			files++
		default:
			// symlinks and devices are skipped
		}
	}
	return files, nil
}

func entryPath(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
