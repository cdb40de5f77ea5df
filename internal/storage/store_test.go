package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmedia/player/internal/media"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	fs, err := NewFilesystem(root)
	require.NoError(t, err)
	return NewStore(fs), fs.Root()
}

func names(files []StoredFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, root := newTestStore(t)
	content := []byte("\x89PNG not really")

	saved, err := store.Save(ctx, "a.png", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "a.png", saved.Name)
	assert.Equal(t, int64(len(content)), saved.Size)
	assert.Equal(t, media.Image, saved.Category)
	assert.Equal(t, filepath.Join(root, "a.png"), saved.Path)
	assert.WithinDuration(t, time.Now(), saved.UploadedAt, time.Minute)

	got, err := store.Read(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, store.Delete(ctx, "a.png"))

	files, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names(files), "a.png")
}

func TestStore_DeleteTwice(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Save(ctx, "clip.mp4", strings.NewReader("frames"))
	require.NoError(t, err)

	assert.NoError(t, store.Delete(ctx, "clip.mp4"))
	assert.ErrorIs(t, store.Delete(ctx, "clip.mp4"), ErrNotFound)
}

func TestStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Save(ctx, "song.mp3", strings.NewReader("first"))
	require.NoError(t, err)
	saved, err := store.Save(ctx, "song.mp3", strings.NewReader("second take"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("second take")), saved.Size)

	got, err := store.Read(ctx, "song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "second take", string(got))

	files, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"song.mp3"}, names(files))
}

func TestStore_SaveRejectsPathEscape(t *testing.T) {
	ctx := context.Background()
	store, root := newTestStore(t)
	outside := filepath.Join(filepath.Dir(root), "escaped.png")

	for _, name := range []string{
		"../../etc/passwd",
		"../escaped.png",
		"/etc/passwd",
		"sub/dir.png",
		"..",
		".",
	} {
		_, err := store.Save(ctx, name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrPathEscape, "name %q", name)
	}

	_, err := os.Stat(outside)
	assert.True(t, os.IsNotExist(err))

	files, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStore_SaveRejectsUnsupported(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for _, name := range []string{"", "run.exe", "noext", "archive.tar.gz"} {
		_, err := store.Save(ctx, name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrUnsupportedType, "name %q", name)
	}
}

func TestStore_NameIsCleaned(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	saved, err := store.Save(ctx, "./x/../notes.md", strings.NewReader("# hi"))
	require.NoError(t, err)
	assert.Equal(t, "notes.md", saved.Name)
}

func TestStore_ListSkipsDirectoriesAndTempFiles(t *testing.T) {
	ctx := context.Background()
	store, root := newTestStore(t)

	_, err := store.Save(ctx, "b.txt", strings.NewReader("b"))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, "folder.mp4"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, tempPrefix+"123"), []byte("partial"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(root, "b.txt"), filepath.Join(root, "link.txt")))

	files, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, names(files))
}

func TestStore_DeleteNonRegular(t *testing.T) {
	ctx := context.Background()
	store, root := newTestStore(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.png"), 0755))

	assert.ErrorIs(t, store.Delete(ctx, "dir.png"), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "../x.png"), ErrPathEscape)
}

func TestStore_StatAndOpen(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Stat(ctx, "missing.gif")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Save(ctx, "anim.gif", strings.NewReader("GIF89a"))
	require.NoError(t, err)

	info, err := store.Stat(ctx, "anim.gif")
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size)

	rc, file, err := store.Open(ctx, "anim.gif")
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, media.Image, file.Category)
	_, isSeeker := rc.(interface {
		Seek(int64, int) (int64, error)
	})
	assert.True(t, isSeeker)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestStore_SaveIOFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store, root := newTestStore(t)

	_, err := store.Save(ctx, "broken.wav", failingReader{})
	assert.ErrorIs(t, err, ErrIO)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanName(t *testing.T) {
	ok := map[string]string{
		"a.png":            "a.png",
		"./a.png":          "a.png",
		"..hidden.mp4":     "..hidden.mp4",
		"x/../b.pdf":       "b.pdf",
		"Holiday 2024.MOV": "Holiday 2024.MOV",
	}
	for in, want := range ok {
		got, err := CleanName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := CleanName("")
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = CleanName(`..\evil.png`)
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestStoredFile_SizeMB(t *testing.T) {
	assert.Equal(t, 1.5, StoredFile{Size: 1572864}.SizeMB())
	assert.Equal(t, 0.0, StoredFile{Size: 10}.SizeMB())
	assert.Equal(t, ".mp4", StoredFile{Name: "A.MP4"}.Ext())
}
