// Package backup archives the AssetScout inventory database and its
// configuration file into a gzip-compressed tarball, and restores them.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/HerbHall/assetscout/internal/version"
	_ "modernc.org/sqlite"
)

// ManifestName is the archive entry describing the backup.
const ManifestName = "manifest.json"

// Sentinel errors.
var (
	ErrDatabaseNotFound = errors.New("database file not found")
	ErrNoDatabase       = errors.New("invalid backup: archive does not contain a .db file")
	ErrFileExists       = errors.New("file already exists (use -force to overwrite)")
	ErrPathTraversal    = errors.New("path traversal detected")
)

// Manifest records what a backup archive holds.
type Manifest struct {
	AppVersion string    `json:"app_version"`
	CreatedAt  time.Time `json:"created_at"`
	Database   string    `json:"database"`
	Config     string    `json:"config,omitempty"`
}

// Backup snapshots the database at dbPath with VACUUM INTO, so a running
// agent can be backed up, and writes it together with the optional config
// file to archivePath.
func Backup(ctx context.Context, dbPath, configPath, archivePath string) (*Manifest, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
	}

	tmpDir, err := os.MkdirTemp("", "assetscout-backup-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, filepath.Base(dbPath))
	if err := snapshotDB(ctx, dbPath, snapshot); err != nil {
		return nil, err
	}

	m := &Manifest{
		AppVersion: version.Short(),
		CreatedAt:  time.Now().UTC(),
		Database:   filepath.Base(dbPath),
	}
	if configPath != "" {
		m.Config = filepath.Base(configPath)
	}

	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	f, err := os.OpenFile(archivePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeBytes(tw, ManifestName, manifest, m.CreatedAt); err != nil {
		return nil, err
	}
	if err := writeFile(tw, snapshot, m.Database); err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := writeFile(tw, configPath, m.Config); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("finalize tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("finalize gzip: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return m, nil
}

func snapshotDB(ctx context.Context, src, dst string) error {
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("snapshot database: %w", err)
	}
	return nil
}

func writeFile(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o600,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func writeBytes(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	hdr := &tar.Header{Name: name, Mode: 0o600, Size: int64(len(data)), ModTime: modTime}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
