// Package backup copies database snapshots to S3-compatible storage or to a
// local directory.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/leavedesk/leavedesk/internal/fsync"
)

// Source produces a consistent snapshot of a database. *store.DB implements it.
type Source interface {
	Backup(w io.Writer) (int64, error)
}

// Target stores a named snapshot and returns its location.
type Target interface {
	Put(ctx context.Context, name string, r io.ReadSeeker, size int64) (string, error)
}

type Result struct {
	Name     string
	Location string
	Size     int64
}

const nameTimeFmt = "20060102T150405Z"

// SnapshotName returns the object name for a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return "leavedesk-" + t.UTC().Format(nameTimeFmt) + ".db"
}

// Run snapshots src and uploads the result to target.
func Run(ctx context.Context, src Source, target Target, now time.Time, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var buf bytes.Buffer
	n, err := src.Backup(&buf)
	if err != nil {
		return Result{}, fmt.Errorf("backup: snapshot: %w", err)
	}
	name := SnapshotName(now)
	loc, err := target.Put(ctx, name, bytes.NewReader(buf.Bytes()), n)
	if err != nil {
		return Result{}, fmt.Errorf("backup: upload %s: %w", name, err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "backup: done", slog.String("location", loc), slog.Int64("size", n))
	return Result{Name: name, Location: loc, Size: n}, nil
}

// FileTarget writes snapshots into a local directory.
type FileTarget struct {
	Dir string
}

func (t FileTarget) Put(ctx context.Context, name string, r io.ReadSeeker, size int64) (string, error) {
	if err := os.MkdirAll(t.Dir, 0o750); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(t.Dir, ".tmp-"+name+"-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}
	if err := fsync.Data(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	dest := filepath.Join(t.Dir, name)
	if err := os.Rename(tmp, dest); err != nil {
		return "", err
	}
	return dest, nil
}
