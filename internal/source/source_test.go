package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmedia/player/internal/embed"
	"github.com/localmedia/player/internal/media"
	"github.com/localmedia/player/internal/storage"
)

type memSaver struct {
	saved map[string][]byte
	err   error
}

func (m *memSaver) Save(ctx context.Context, name string, content io.Reader) (storage.StoredFile, error) {
	cleaned, err := storage.ValidateName(name)
	if err != nil {
		return storage.StoredFile{}, err
	}
	if m.err != nil {
		return storage.StoredFile{}, m.err
	}
	data, _ := io.ReadAll(content)
	m.saved[cleaned] = data
	return storage.StoredFile{
		Name:     cleaned,
		Size:     int64(len(data)),
		Category: media.FromName(cleaned),
		Path:     "/uploads/" + cleaned,
	}, nil
}

func multipartRequest(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/play/upload", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestUpload_CollectAndDescribe(t *testing.T) {
	saver := &memSaver{saved: map[string][]byte{}}
	h := NewUpload(saver, 0)

	in, err := h.Collect(multipartRequest(t, map[string]string{
		"clip.mp4":  "video bytes",
		"virus.exe": "nope",
	}))
	require.NoError(t, err)
	assert.Equal(t, Upload, in.Kind)
	assert.Len(t, in.Files, 2)

	descs, err := h.Describe(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, descs, 2)

	byName := map[string]Descriptor{}
	for _, d := range descs {
		byName[d.Name] = d
	}

	clip := byName["clip.mp4"]
	assert.Equal(t, WidgetVideo, clip.Widget)
	assert.Equal(t, FromBytes, clip.Origin)
	assert.Equal(t, []byte("video bytes"), clip.Data)
	assert.Equal(t, "video/mp4", clip.ContentType)

	virus := byName["virus.exe"]
	assert.Equal(t, WidgetNone, virus.Widget)
	assert.Contains(t, virus.Warning, "unsupported")

	assert.Contains(t, saver.saved, "clip.mp4")
	assert.NotContains(t, saver.saved, "virus.exe")
}

func TestUpload_NoFiles(t *testing.T) {
	h := NewUpload(&memSaver{saved: map[string][]byte{}}, 0)
	_, err := h.Collect(multipartRequest(t, nil))
	assert.ErrorIs(t, err, ErrNoInput)

	r := httptest.NewRequest(http.MethodPost, "/play/upload", strings.NewReader("x"))
	_, err = h.Collect(r)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestUpload_FileTooLarge(t *testing.T) {
	saver := &memSaver{saved: map[string][]byte{}}
	h := NewUpload(saver, 4)

	_, err := h.Collect(multipartRequest(t, map[string]string{"big.mp4": "12345"}))
	var mbe *http.MaxBytesError
	require.ErrorAs(t, err, &mbe)
	assert.Equal(t, int64(4), mbe.Limit)

	in, err := h.Collect(multipartRequest(t, map[string]string{"ok.mp4": "1234"}))
	require.NoError(t, err)
	assert.Len(t, in.Files, 1)
}

func TestUpload_StorageFailureAborts(t *testing.T) {
	boom := errors.New("disk full")
	h := NewUpload(&memSaver{saved: map[string][]byte{}, err: boom}, 0)
	_, err := h.Describe(context.Background(), Input{Kind: Upload, Files: []UploadedFile{{Name: "a.png", Data: []byte("x")}}})
	assert.ErrorIs(t, err, boom)
}

func setupLocalDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"ep10.mp4", "ep2.mp4", "Cover.JPG", "readme.doc", "song.flac"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.mp4"), 0755))
	return dir
}

func TestLocal_Scan(t *testing.T) {
	dir := setupLocalDir(t)
	h, err := NewLocal([]string{dir})
	require.NoError(t, err)

	entries, err := h.Scan(dir)
	require.NoError(t, err)

	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}
	assert.Equal(t, []string{"Cover.JPG", "ep2.mp4", "ep10.mp4", "song.flac"}, got)
	assert.Equal(t, media.Image, entries[0].Category)
}

func TestLocal_DescribePicksFile(t *testing.T) {
	dir := setupLocalDir(t)
	h, err := NewLocal([]string{dir})
	require.NoError(t, err)

	descs, err := h.Describe(context.Background(), Input{Kind: Local, Dir: dir, Pick: "song.flac"})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, WidgetAudio, descs[0].Widget)
	assert.Equal(t, FromPath, descs[0].Origin)
	assert.Equal(t, "song.flac", filepath.Base(descs[0].Path))
	assert.Nil(t, descs[0].Data)

	descs, err = h.Describe(context.Background(), Input{Kind: Local, Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "Cover.JPG", descs[0].Name)

	_, err = h.Describe(context.Background(), Input{Kind: Local, Dir: dir, Pick: "readme.doc"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocal_Confinement(t *testing.T) {
	root := setupLocalDir(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.mp4"), []byte("x"), 0644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	h, err := NewLocal([]string{root})
	require.NoError(t, err)

	_, err = h.Scan(outside)
	assert.ErrorIs(t, err, ErrOutsideRoots)

	_, err = h.Scan(filepath.Join(root, ".."))
	assert.ErrorIs(t, err, ErrOutsideRoots)

	_, err = h.Scan(filepath.Join(root, "escape"))
	assert.ErrorIs(t, err, ErrOutsideRoots)

	_, _, err = h.Open(filepath.Join(root, "escape", "secret.mp4"))
	assert.ErrorIs(t, err, ErrOutsideRoots)

	_, _, err = h.Open(filepath.Join(root, "readme.doc"))
	assert.ErrorIs(t, err, storage.ErrUnsupportedType)

	f, info, err := h.Open(filepath.Join(root, "ep2.mp4"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(len("ep2.mp4")), info.Size())
}

func TestLocal_Disabled(t *testing.T) {
	h, err := NewLocal(nil)
	require.NoError(t, err)
	assert.False(t, h.Enabled())

	_, err = h.Scan("/tmp")
	assert.ErrorIs(t, err, ErrLocalDisabled)
}

func TestLocal_Collect(t *testing.T) {
	h, _ := NewLocal([]string{"/srv"})
	in, err := h.Collect(httptest.NewRequest(http.MethodGet, "/play/local?dir=/srv/a&file=b.mp4", nil))
	require.NoError(t, err)
	assert.Equal(t, Input{Kind: Local, Dir: "/srv/a", Pick: "b.mp4"}, in)

	_, err = h.Collect(httptest.NewRequest(http.MethodGet, "/play/local", nil))
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestWeb_Describe(t *testing.T) {
	h := NewWeb()
	ctx := context.Background()

	descs, err := h.Describe(ctx, Input{Kind: Web, URL: "https://youtu.be/abc123?t=5"})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, WidgetFrame, descs[0].Widget)
	assert.Equal(t, FromURL, descs[0].Origin)
	assert.Equal(t, "https://www.youtube.com/embed/abc123", descs[0].URL)
	assert.Equal(t, embed.YouTube, descs[0].Embed.Provider)

	descs, err = h.Describe(ctx, Input{Kind: Web, URL: "https://cdn.example.com/video.mp4"})
	require.NoError(t, err)
	assert.Equal(t, WidgetVideo, descs[0].Widget)
	assert.Equal(t, "video/mp4", descs[0].ContentType)

	descs, err = h.Describe(ctx, Input{Kind: Web, URL: "https://drive.google.com/open?id=x"})
	require.NoError(t, err)
	assert.Equal(t, WidgetNone, descs[0].Widget)
	assert.NotEmpty(t, descs[0].Warning)

	_, err = h.Describe(ctx, Input{Kind: Web})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewWeb(), NewUpload(&memSaver{saved: map[string][]byte{}}, 0))
	assert.Equal(t, []Kind{Upload, Web}, reg.Kinds())

	descs, err := reg.Run(context.Background(), Web, httptest.NewRequest(http.MethodGet, "/?url=https://example.com/page", nil))
	require.NoError(t, err)
	assert.Equal(t, WidgetFrame, descs[0].Widget)

	_, err = reg.Run(context.Background(), Local, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("ep2.mp4", "ep10.mp4"))
	assert.False(t, naturalLess("ep10.mp4", "ep2.mp4"))
	assert.True(t, naturalLess("Alpha.png", "beta.png"))
	assert.True(t, naturalLess("a", "a1"))
	assert.True(t, naturalLess("track1", "track01b"))
}
