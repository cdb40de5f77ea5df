package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmedia/player/internal/storage"
)

type stubLister struct {
	files []storage.StoredFile
	err   error
}

func (s stubLister) List(ctx context.Context) ([]storage.StoredFile, error) {
	return s.files, s.err
}

func file(name string, at time.Time) storage.StoredFile {
	return storage.StoredFile{Name: name, UploadedAt: at}
}

func TestIndex_AllNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ix := New()
	ix.Record(file("old.mp4", base))
	ix.Record(file("new.mp4", base.Add(2*time.Hour)))
	ix.Record(file("mid.mp4", base.Add(time.Hour)))
	ix.Record(file("also-mid.mp3", base.Add(time.Hour)))

	var got []string
	for _, f := range ix.All() {
		got = append(got, f.Name)
	}
	assert.Equal(t, []string{"new.mp4", "also-mid.mp3", "mid.mp4", "old.mp4"}, got)
}

func TestIndex_RecordUpserts(t *testing.T) {
	ix := New()
	ix.Record(storage.StoredFile{Name: "a.png", Size: 1})
	ix.Record(storage.StoredFile{Name: "a.png", Size: 2})

	assert.Equal(t, 1, ix.Len())
	f, ok := ix.Get("a.png")
	require.True(t, ok)
	assert.Equal(t, int64(2), f.Size)
}

func TestIndex_Forget(t *testing.T) {
	ix := New()
	ix.Record(file("a.png", time.Now()))
	ix.Forget("a.png")
	ix.Forget("never-there.png")

	_, ok := ix.Get("a.png")
	assert.False(t, ok)
	assert.Empty(t, ix.All())
}

func TestIndex_SyncReplacesContents(t *testing.T) {
	ix := New()
	ix.Record(file("stale.png", time.Now()))

	err := ix.Sync(context.Background(), stubLister{files: []storage.StoredFile{
		file("fresh.png", time.Now()),
	}})
	require.NoError(t, err)

	_, ok := ix.Get("stale.png")
	assert.False(t, ok)
	_, ok = ix.Get("fresh.png")
	assert.True(t, ok)
}

func TestIndex_SyncErrorKeepsContents(t *testing.T) {
	ix := New()
	ix.Record(file("keep.png", time.Now()))

	err := ix.Sync(context.Background(), stubLister{err: errors.New("boom")})
	assert.Error(t, err)
	assert.Equal(t, 1, ix.Len())
}
