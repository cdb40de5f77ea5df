// Package index keeps an in-memory view of the upload directory so listings
// do not rescan storage on every request. Storage stays authoritative: the
// index can drift when files are changed behind the server's back and is
// repaired by Sync.
package index

import (
	"context"
	"sort"
	"sync"

	"github.com/localmedia/player/internal/storage"
)

// Lister is the part of the store a full rescan needs
type Lister interface {
	List(ctx context.Context) ([]storage.StoredFile, error)
}

// Index maps filename to file metadata
type Index struct {
	mu    sync.RWMutex
	files map[string]storage.StoredFile
}

// New returns an empty index
func New() *Index {
	return &Index{files: make(map[string]storage.StoredFile)}
}

// Sync clears the index and rebuilds it from a full listing. On error the
// previous contents are kept.
func (ix *Index) Sync(ctx context.Context, lister Lister) error {
	files, err := lister.List(ctx)
	if err != nil {
		return err
	}

	rebuilt := make(map[string]storage.StoredFile, len(files))
	for _, f := range files {
		rebuilt[f.Name] = f
	}

	ix.mu.Lock()
	ix.files = rebuilt
	ix.mu.Unlock()
	return nil
}

// Record upserts a file after a successful save
func (ix *Index) Record(f storage.StoredFile) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.files[f.Name] = f
}

// Forget drops a file after a successful delete
func (ix *Index) Forget(name string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.files, name)
}

// Get looks up a single file
func (ix *Index) Get(name string) (storage.StoredFile, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	f, ok := ix.files[name]
	return f, ok
}

// Len is the number of indexed files
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.files)
}

// All returns every file, newest upload first. Equal timestamps fall back
// to name order so the listing is stable.
func (ix *Index) All() []storage.StoredFile {
	ix.mu.RLock()
	files := make([]storage.StoredFile, 0, len(ix.files))
	for _, f := range ix.files {
		files = append(files, f)
	}
	ix.mu.RUnlock()

	sort.Slice(files, func(i, j int) bool {
		if !files[i].UploadedAt.Equal(files[j].UploadedAt) {
			return files[i].UploadedAt.After(files[j].UploadedAt)
		}
		return files[i].Name < files[j].Name
	})
	return files
}
