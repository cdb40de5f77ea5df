package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// partial uploads are written under this prefix and renamed into place
const tempPrefix = ".upload-"

// Filesystem implements Backend using one local directory
type Filesystem struct {
	basePath string
}

// NewFilesystem creates a new filesystem storage backend
func NewFilesystem(basePath string) (*Filesystem, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Filesystem{basePath: abs}, nil
}

// Root returns the absolute upload directory
func (f *Filesystem) Root() string {
	return f.basePath
}

// filePath joins name onto the root and refuses anything that lands elsewhere
func (f *Filesystem) filePath(name string) (string, error) {
	full := filepath.Join(f.basePath, name)
	rel, err := filepath.Rel(f.basePath, full)
	if err != nil || rel != filepath.Base(full) || rel == "." || rel == ".." {
		return "", ErrPathEscape
	}
	return full, nil
}

func (f *Filesystem) Location(name string) string {
	return filepath.Join(f.basePath, name)
}

// Put writes content to a temp file and renames it over name
func (f *Filesystem) Put(ctx context.Context, name string, content io.Reader) (*Object, error) {
	path, err := f.filePath(name)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(f.basePath, tempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}

	return f.Stat(ctx, name)
}

// Open opens a regular file for reading
func (f *Filesystem) Open(ctx context.Context, name string) (io.ReadCloser, *Object, error) {
	obj, err := f.Stat(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(obj.Location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, obj, nil
}

// Stat returns metadata for a regular file. Symlinks and directories
// count as missing.
func (f *Filesystem) Stat(ctx context.Context, name string) (*Object, error) {
	path, err := f.filePath(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}

	return &Object{
		Name:     name,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Location: path,
	}, nil
}

// Delete removes a regular file
func (f *Filesystem) Delete(ctx context.Context, name string) error {
	obj, err := f.Stat(ctx, name)
	if err != nil {
		return err
	}

	if err := os.Remove(obj.Location); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List returns every regular file directly under the root
func (f *Filesystem) List(ctx context.Context) ([]*Object, error) {
	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var objects []*Object
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}

		objects = append(objects, &Object{
			Name:     entry.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Location: filepath.Join(f.basePath, entry.Name()),
		})
	}

	return objects, nil
}
