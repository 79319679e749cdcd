// Package storage defines the object store abstraction used to archive
// dashboard exports.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

var exportFormatPattern = regexp.MustCompile(`^[a-z0-9]{1,16}$`)

// BuildExportPath lays out archived exports by UTC date so a bucket
// listing groups one day's downloads together, e.g.
// exports/date=2026-08-24/menu_export_20260824_093000.csv.
func BuildExportPath(filename, format string, exportedAt time.Time) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("export filename is required")
	}
	if !exportFormatPattern.MatchString(format) {
		return "", fmt.Errorf("invalid export format: %q", format)
	}
	if path.Base(filename) != filename {
		return "", fmt.Errorf("invalid export filename: %q", filename)
	}

	ts := exportedAt.UTC()
	return path.Join(
		"exports",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		filename,
	), nil
}

// ContentTypeFor maps an export format onto the MIME type sent to the
// object store.
func ContentTypeFor(format string) string {
	switch format {
	case "csv":
		return "text/csv"
	case "parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}
