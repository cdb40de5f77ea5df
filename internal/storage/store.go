package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Store is the only way the rest of the server touches uploaded files.
// Names are validated before any backend call is made.
type Store struct {
	backend Backend
	now     func() time.Time
}

// NewStore wraps a backend
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Save writes content under name. An existing file with the same name is
// overwritten, which makes re-uploading the same file idempotent.
func (s *Store) Save(ctx context.Context, name string, content io.Reader) (StoredFile, error) {
	cleaned, err := ValidateName(name)
	if err != nil {
		return StoredFile{}, err
	}

	obj, err := s.backend.Put(ctx, cleaned, content)
	if err != nil {
		return StoredFile{}, wrapIO("save", cleaned, err)
	}

	return fileFromObject(obj, s.now()), nil
}

// List scans the root. Order is whatever the backend returns.
func (s *Store) List(ctx context.Context) ([]StoredFile, error) {
	objects, err := s.backend.List(ctx)
	if err != nil {
		return nil, wrapIO("list", "", err)
	}

	files := make([]StoredFile, 0, len(objects))
	for _, obj := range objects {
		files = append(files, fileFromObject(obj, obj.ModTime.UTC()))
	}
	return files, nil
}

// Delete removes name. Deleting twice yields ErrNotFound the second time.
func (s *Store) Delete(ctx context.Context, name string) error {
	cleaned, err := CleanName(name)
	if err != nil {
		return err
	}

	if err := s.backend.Delete(ctx, cleaned); err != nil {
		return wrapIO("delete", cleaned, err)
	}
	return nil
}

// Stat returns metadata for name, with UploadedAt taken from the
// modification time
func (s *Store) Stat(ctx context.Context, name string) (StoredFile, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return StoredFile{}, err
	}

	obj, err := s.backend.Stat(ctx, cleaned)
	if err != nil {
		return StoredFile{}, wrapIO("stat", cleaned, err)
	}
	return fileFromObject(obj, obj.ModTime.UTC()), nil
}

// Open returns a reader for name. Filesystem readers also implement
// io.ReadSeeker.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, StoredFile, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return nil, StoredFile{}, err
	}

	rc, obj, err := s.backend.Open(ctx, cleaned)
	if err != nil {
		return nil, StoredFile{}, wrapIO("open", cleaned, err)
	}
	return rc, fileFromObject(obj, obj.ModTime.UTC()), nil
}

// Read returns the full content of name
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	rc, _, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrapIO("read", name, err)
	}
	return data, nil
}

// wrapIO passes taxonomy errors through and tags everything else as ErrIO
func wrapIO(op, name string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPathEscape) || errors.Is(err, ErrUnsupportedType) {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, name, err)
}
