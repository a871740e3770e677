package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxEntrySize caps a single extracted entry.
const maxEntrySize = 10 << 30

// Restore extracts archivePath into targetDir and returns the archive's
// manifest, or nil for archives written without one. Existing files are
// only overwritten when force is set.
//
// The archive is read twice. The first pass validates every entry and
// destination; nothing is written unless it succeeds.
func Restore(ctx context.Context, archivePath, targetDir string, force bool) (*Manifest, error) {
	var (
		manifest *Manifest
		foundDB  bool
	)
	err := walkArchive(ctx, archivePath, func(hdr *tar.Header, r io.Reader) error {
		dest, err := entryPath(hdr.Name, targetDir)
		if err != nil {
			return err
		}
		if hdr.Name == ManifestName {
			manifest = &Manifest{}
			if err := json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(manifest); err != nil {
				return fmt.Errorf("decode manifest: %w", err)
			}
			return nil
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil
		}
		if strings.HasSuffix(hdr.Name, ".db") {
			foundDB = true
		}
		if !force {
			if _, err := os.Stat(dest); err == nil {
				return fmt.Errorf("%w: %s", ErrFileExists, dest)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !foundDB {
		return nil, ErrNoDatabase
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create target directory: %w", err)
	}
	err = walkArchive(ctx, archivePath, func(hdr *tar.Header, r io.Reader) error {
		if hdr.Name == ManifestName || hdr.Typeflag != tar.TypeReg {
			return nil
		}
		dest, err := entryPath(hdr.Name, targetDir)
		if err != nil {
			return err
		}
		if err := extract(r, dest); err != nil {
			return fmt.Errorf("extract %s: %w", hdr.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

// walkArchive calls fn for each entry of the gzipped tar at path.
func walkArchive(ctx context.Context, path string, fn func(*tar.Header, io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("decompress archive: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive entry: %w", err)
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

// entryPath resolves an archive entry name inside targetDir, rejecting
// names that would land outside it.
func entryPath(name, targetDir string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: absolute path %q", ErrPathTraversal, name)
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}

	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return "", fmt.Errorf("resolve target directory: %w", err)
	}
	dest := filepath.Join(absTarget, cleaned)
	if !strings.HasPrefix(dest, absTarget+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q resolves outside target", ErrPathTraversal, name)
	}
	return dest, nil
}

func extract(r io.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.LimitReader(r, maxEntrySize)); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
