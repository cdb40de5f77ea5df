package library

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/localmedia/player/internal/index"
	"github.com/localmedia/player/internal/storage"
)

// Library couples the store with its index. Every mutation updates both
// while holding the lock for that filename, and the index is only touched
// after storage succeeded.
type Library struct {
	store  *storage.Store
	index  *index.Index
	logger *zap.Logger

	// syncMu is held shared by per-name mutations and exclusively by Sync,
	// so a rescan never interleaves with a save or delete
	syncMu sync.RWMutex
	names  keyedMutex
}

// New creates a library. Call Sync before serving to load existing files.
func New(store *storage.Store, ix *index.Index, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Library{
		store:  store,
		index:  ix,
		logger: logger,
		names:  keyedMutex{locks: make(map[string]*keyLock)},
	}
}

// Save stores content under name and records it in the index
func (l *Library) Save(ctx context.Context, name string, content io.Reader) (storage.StoredFile, error) {
	cleaned, err := storage.ValidateName(name)
	if err != nil {
		return storage.StoredFile{}, err
	}

	unlock := l.lock(cleaned)
	defer unlock()

	file, err := l.store.Save(ctx, cleaned, content)
	if err != nil {
		return storage.StoredFile{}, err
	}
	l.index.Record(file)

	l.logger.Info("file saved",
		zap.String("filename", file.Name),
		zap.Int64("size", file.Size),
		zap.String("category", string(file.Category)))
	return file, nil
}

// Delete removes name from storage and then from the index
func (l *Library) Delete(ctx context.Context, name string) error {
	cleaned, err := storage.CleanName(name)
	if err != nil {
		return err
	}

	unlock := l.lock(cleaned)
	defer unlock()

	if err := l.store.Delete(ctx, cleaned); err != nil {
		return err
	}
	l.index.Forget(cleaned)

	l.logger.Info("file deleted", zap.String("filename", cleaned))
	return nil
}

// Sync rebuilds the index from a full storage scan and returns the number
// of files found
func (l *Library) Sync(ctx context.Context) (int, error) {
	l.syncMu.Lock()
	defer l.syncMu.Unlock()

	if err := l.index.Sync(ctx, l.store); err != nil {
		return 0, err
	}

	n := l.index.Len()
	l.logger.Info("index synced", zap.Int("files", n))
	return n, nil
}

// Files lists indexed files, newest first
func (l *Library) Files() []storage.StoredFile {
	return l.index.All()
}

// Lookup returns the indexed metadata for name
func (l *Library) Lookup(name string) (storage.StoredFile, bool) {
	return l.index.Get(name)
}

// Stat reads metadata straight from storage
func (l *Library) Stat(ctx context.Context, name string) (storage.StoredFile, error) {
	return l.store.Stat(ctx, name)
}

// Open returns a reader for a stored file
func (l *Library) Open(ctx context.Context, name string) (io.ReadCloser, storage.StoredFile, error) {
	return l.store.Open(ctx, name)
}

// Read returns the full content of a stored file
func (l *Library) Read(ctx context.Context, name string) ([]byte, error) {
	return l.store.Read(ctx, name)
}

func (l *Library) lock(name string) func() {
	l.syncMu.RLock()
	unlock := l.names.Lock(name)
	return func() {
		unlock()
		l.syncMu.RUnlock()
	}
}

// keyedMutex hands out one mutex per key and drops it once unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
