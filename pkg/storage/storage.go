// Package storage keeps the raw bytes of uploaded tables.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/equipviz/equipviz/pkg/config"
)

// FileStorage saves uploaded files and releases them once their dataset is gone.
// Save returns a location that is stable for the lifetime of the stored bytes;
// Release of a location that no longer exists is not an error.
type FileStorage interface {
	Save(ctx context.Context, owner, filename string, content []byte) (string, error)
	Release(ctx context.Context, location string) error
	Close() error
}

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._@-]+`)

func sanitizeSegment(segment string) string {
	segment = unsafeSegment.ReplaceAllString(segment, "_")
	segment = strings.ReplaceAll(segment, "..", "_")
	segment = strings.Trim(segment, ".")
	if segment == "" {
		return "_"
	}

	return segment
}

// objectKey builds "<owner>/<uuid>-<basename>"; the uuid keeps re-uploads of the
// same file name apart.
func objectKey(owner, filename string) string {
	base := sanitizeSegment(filepath.Base(filepath.ToSlash(filename)))
	return path.Join(sanitizeSegment(owner), uuid.NewString()+"-"+base)
}

// New picks a backend from cfg.StorageURL: file://<dir>, mem:// or gs://<bucket>/<prefix>.
//
//nolint:ireturn
func New(ctx context.Context, cfg *config.Config) (FileStorage, error) {
	rawURL := cfg.StorageURL

	switch {
	case strings.HasPrefix(rawURL, "file://"):
		return NewLocalStorage(strings.TrimPrefix(rawURL, "file://"))
	case strings.HasPrefix(rawURL, "mem://"):
		return NewMemoryStorage(), nil
	case strings.HasPrefix(rawURL, "gs://"):
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid storage url %q: %w", rawURL, err)
		}
		return NewGCSStorage(ctx, u.Host, strings.Trim(u.Path, "/"), cfg.GCSCredentialsFile)
	default:
		return nil, fmt.Errorf("unsupported storage url %q", rawURL)
	}
}
