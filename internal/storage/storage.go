package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/localmedia/player/internal/config"
	"github.com/localmedia/player/internal/media"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrPathEscape      = errors.New("path escapes upload root")
	ErrNotFound        = errors.New("file not found")
	ErrIO              = errors.New("storage i/o failure")
)

// Object is what a backend knows about a stored blob
type Object struct {
	Name     string
	Size     int64
	ModTime  time.Time
	Location string
}

// Backend is a flat namespace of named blobs under one managed root.
// Names passed in are already cleaned with CleanName.
type Backend interface {
	// Put stores content under name, replacing any existing blob
	Put(ctx context.Context, name string, content io.Reader) (*Object, error)

	// Open returns the content of a regular file
	Open(ctx context.Context, name string) (io.ReadCloser, *Object, error)

	// Stat returns metadata for a regular file
	Stat(ctx context.Context, name string) (*Object, error)

	// Delete removes a regular file, ErrNotFound if there is none
	Delete(ctx context.Context, name string) error

	// List returns the regular files directly under the root
	List(ctx context.Context) ([]*Object, error)

	// Location describes where name lives, for API responses
	Location(name string) string
}

// StoredFile is one file in the managed upload root
type StoredFile struct {
	Name       string         `json:"filename"`
	Size       int64          `json:"size"`
	Category   media.Category `json:"category"`
	UploadedAt time.Time      `json:"uploaded_at"`
	Path       string         `json:"path"`
}

// SizeMB is the size in megabytes rounded to two decimals
func (f StoredFile) SizeMB() float64 {
	mb := float64(f.Size) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}

// Ext is the lowercased extension including the dot
func (f StoredFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

func fileFromObject(obj *Object, uploadedAt time.Time) StoredFile {
	return StoredFile{
		Name:       obj.Name,
		Size:       obj.Size,
		Category:   media.FromName(obj.Name),
		UploadedAt: uploadedAt,
		Path:       obj.Location,
	}
}

// CleanName resolves name against a flat root. Anything that is absolute,
// climbs out of the root or points into a subdirectory is ErrPathEscape.
func CleanName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty filename", ErrUnsupportedType)
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", ErrPathEscape
	}

	cleaned := filepath.Clean(name)
	if cleaned == "." || cleaned == ".." {
		return "", ErrPathEscape
	}
	if strings.ContainsAny(cleaned, `/\`) {
		return "", ErrPathEscape
	}
	return cleaned, nil
}

// ValidateName runs every check that must pass before a save touches storage
func ValidateName(name string) (string, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if !media.Supported(filepath.Ext(cleaned)) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, strings.ToLower(filepath.Ext(cleaned)))
	}
	return cleaned, nil
}

// New creates a storage backend based on configuration
func New(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Type {
	case "filesystem", "":
		return NewFilesystem(cfg.Path)
	case "s3":
		return NewS3(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
