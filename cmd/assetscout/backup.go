package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/HerbHall/assetscout/internal/backup"
)

func runBackup(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	out := fs.String("out", "", "archive path (default assetscout-backup-<timestamp>.tar.gz)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, logger, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	archive := *out
	if archive == "" {
		archive = fmt.Sprintf("assetscout-backup-%s.tar.gz", time.Now().UTC().Format("20060102-150405"))
	}

	m, err := backup.Backup(context.Background(), v.GetString("database.path"), v.ConfigFileUsed(), archive)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "backup written to %s (database %s, version %s)\n", archive, m.Database, m.AppVersion)
	return nil
}

func runRestore(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "archive to restore (required)")
	dir := fs.String("dir", ".", "target directory")
	force := fs.Bool("force", false, "overwrite existing files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	m, err := backup.Restore(context.Background(), *in, *dir, *force)
	if err != nil {
		return err
	}
	target, _ := filepath.Abs(*dir)
	if m != nil {
		fmt.Fprintf(stdout, "restored %s into %s (backup of %s taken %s)\n",
			m.Database, target, m.AppVersion, m.CreatedAt.Format(time.RFC3339))
		return nil
	}
	fmt.Fprintf(stdout, "restored into %s\n", target)
	return nil
}
