package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/localmedia/player/internal/index"
	"github.com/localmedia/player/internal/storage"
)

func newTestLibrary(t *testing.T) (*Library, *storage.Store, string) {
	t.Helper()
	fs, err := storage.NewFilesystem(t.TempDir())
	require.NoError(t, err)
	store := storage.NewStore(fs)
	return New(store, index.New(), zaptest.NewLogger(t)), store, fs.Root()
}

func indexedNames(l *Library) []string {
	var out []string
	for _, f := range l.Files() {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

func storedNames(t *testing.T, store *storage.Store) []string {
	t.Helper()
	files, err := store.List(context.Background())
	require.NoError(t, err)
	var out []string
	for _, f := range files {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

func TestLibrary_IndexFollowsMutations(t *testing.T) {
	ctx := context.Background()
	lib, store, _ := newTestLibrary(t)

	steps := []struct {
		op   string
		name string
	}{
		{"save", "a.png"},
		{"save", "b.mp4"},
		{"save", "a.png"},
		{"delete", "b.mp4"},
		{"save", "c.pdf"},
		{"delete", "missing.mp3"},
		{"save", "../evil.png"},
		{"save", "d.exe"},
	}

	for _, s := range steps {
		switch s.op {
		case "save":
			_, _ = lib.Save(ctx, s.name, strings.NewReader("data"))
		case "delete":
			_ = lib.Delete(ctx, s.name)
		}
		assert.Equal(t, storedNames(t, store), indexedNames(lib), "after %s %s", s.op, s.name)
	}

	assert.Equal(t, []string{"a.png", "c.pdf"}, indexedNames(lib))
}

func TestLibrary_FailedDeleteLeavesIndex(t *testing.T) {
	ctx := context.Background()
	lib, _, root := newTestLibrary(t)

	_, err := lib.Save(ctx, "gone.mp3", strings.NewReader("x"))
	require.NoError(t, err)

	// removed behind the library's back
	require.NoError(t, os.Remove(filepath.Join(root, "gone.mp3")))

	err = lib.Delete(ctx, "gone.mp3")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, ok := lib.Lookup("gone.mp3")
	assert.True(t, ok, "index is only repaired by Sync")

	n, err := lib.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, ok = lib.Lookup("gone.mp3")
	assert.False(t, ok)
}

func TestLibrary_SyncPicksUpExistingFiles(t *testing.T) {
	ctx := context.Background()
	lib, _, root := newTestLibrary(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "old.mov"), []byte("moov"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0644))

	n, err := lib.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, ok := lib.Lookup("old.mov")
	require.True(t, ok)
	info, err := os.Stat(filepath.Join(root, "old.mov"))
	require.NoError(t, err)
	assert.True(t, f.UploadedAt.Equal(info.ModTime().UTC()))
}

func TestLibrary_ConcurrentSaveDeleteSameName(t *testing.T) {
	ctx := context.Background()
	lib, store, _ := newTestLibrary(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := lib.Save(ctx, "race.webm", strings.NewReader(fmt.Sprintf("payload %d", i)))
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			err := lib.Delete(ctx, "race.webm")
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("unexpected delete error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, storedNames(t, store), indexedNames(lib))
	if f, ok := lib.Lookup("race.webm"); ok {
		data, err := lib.Read(ctx, f.Name)
		require.NoError(t, err)
		assert.Equal(t, f.Size, int64(len(data)))
	}
}

func TestLibrary_ConcurrentSyncAndSaves(t *testing.T) {
	ctx := context.Background()
	lib, store, _ := newTestLibrary(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := lib.Save(ctx, fmt.Sprintf("clip-%02d.mp4", i), strings.NewReader("x"))
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := lib.Sync(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, indexedNames(lib), 20)
	assert.Equal(t, storedNames(t, store), indexedNames(lib))
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := keyedMutex{locks: make(map[string]*keyLock)}
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Len(t, k.locks, 2)
	unlockA()
	unlockB()
	assert.Empty(t, k.locks)
}
