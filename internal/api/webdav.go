package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/net/webdav"

	"github.com/localmedia/player/internal/auth"
	"github.com/localmedia/player/internal/library"
	"github.com/localmedia/player/internal/storage"
)

func init() {
	// chi answers 405 for methods it has never heard of
	for _, m := range []string{"PROPFIND", "PROPPATCH", "MKCOL", "COPY", "MOVE", "LOCK", "UNLOCK"} {
		chi.RegisterMethod(m)
	}
}

var errTooLarge = errors.New("file too large")

// WebDAVHandler exposes the upload store as a flat WebDAV share
type WebDAVHandler struct {
	library     *library.Library
	gate        *auth.Gate
	handler     *webdav.Handler
	logger      *zap.Logger
	maxFileSize int64
}

// NewWebDAV creates a new WebDAV handler
func NewWebDAV(lib *library.Library, gate *auth.Gate, maxFileSize int64, logger *zap.Logger) *WebDAVHandler {
	w := &WebDAVHandler{
		library:     lib,
		gate:        gate,
		logger:      logger,
		maxFileSize: maxFileSize,
	}

	w.handler = &webdav.Handler{
		Prefix:     "/webdav",
		FileSystem: w,
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logger.Warn("webdav request failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err))
			}
		},
	}

	return w
}

// ServeHTTP handles WebDAV requests. The admin secret is accepted as the
// Basic auth password (username is ignored) or through the usual headers.
func (w *WebDAVHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if !w.gate.AllowedBasic(r) && !w.gate.Allowed(r) {
		rw.Header().Set("WWW-Authenticate", `Basic realm="media"`)
		http.Error(rw, "Unauthorized", http.StatusUnauthorized)
		return
	}
	w.handler.ServeHTTP(rw, r)
}

// --- webdav.FileSystem implementation ---

func (w *WebDAVHandler) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	// Flat filesystem, no directories supported
	return os.ErrPermission
}

func (w *WebDAVHandler) RemoveAll(ctx context.Context, name string) error {
	name = cleanPath(name)
	if name == "" {
		return os.ErrPermission
	}
	return davError(w.library.Delete(ctx, name))
}

func (w *WebDAVHandler) Rename(ctx context.Context, oldName, newName string) error {
	// Renaming would need a copy and delete across two locks
	return os.ErrPermission
}

func (w *WebDAVHandler) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	name = cleanPath(name)

	// Root directory
	if name == "" {
		return rootInfo(), nil
	}

	if stored, ok := w.library.Lookup(name); ok {
		return fileInfo(stored), nil
	}

	stored, err := w.library.Stat(ctx, name)
	if err != nil {
		return nil, davError(err)
	}
	return fileInfo(stored), nil
}

func (w *WebDAVHandler) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	name = cleanPath(name)

	// Root directory listing
	if name == "" {
		if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
			return nil, os.ErrPermission
		}
		return w.openRootDir(), nil
	}

	// Write mode - buffer and save on close
	if flag&(os.O_CREATE|os.O_WRONLY|os.O_RDWR) != 0 {
		cleaned, err := storage.ValidateName(name)
		if err != nil {
			return nil, os.ErrPermission
		}
		return &davWriteFile{
			ctx:         ctx,
			name:        cleaned,
			library:     w.library,
			buffer:      &bytes.Buffer{},
			maxFileSize: w.maxFileSize,
		}, nil
	}

	return w.openFile(ctx, name)
}

func (w *WebDAVHandler) openRootDir() webdav.File {
	files := w.library.Files()
	children := make([]os.FileInfo, len(files))
	for i, f := range files {
		children[i] = fileInfo(f)
	}
	return &davDir{info: rootInfo(), children: children}
}

func (w *WebDAVHandler) openFile(ctx context.Context, name string) (webdav.File, error) {
	content, stored, err := w.library.Open(ctx, name)
	if err != nil {
		return nil, davError(err)
	}

	// Filesystem readers seek on their own; anything else is buffered
	if rs, ok := content.(io.ReadSeekCloser); ok {
		return &davFile{info: fileInfo(stored), reader: rs, closer: rs}, nil
	}

	data, err := io.ReadAll(content)
	content.Close()
	if err != nil {
		return nil, err
	}
	return &davFile{info: fileInfo(stored), reader: bytes.NewReader(data)}, nil
}

func cleanPath(name string) string {
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimSuffix(name, "/")
	return name
}

// davError maps store errors onto the os errors the webdav package
// turns into status codes
func davError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrPathEscape):
		return os.ErrNotExist
	case errors.Is(err, storage.ErrUnsupportedType):
		return os.ErrPermission
	}
	return err
}

// --- FileInfo implementation ---

type davFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

func rootInfo() *davFileInfo {
	return &davFileInfo{name: "/", mode: os.ModeDir | 0755, modTime: time.Now(), isDir: true}
}

func fileInfo(f storage.StoredFile) *davFileInfo {
	return &davFileInfo{name: f.Name, size: f.Size, mode: 0644, modTime: f.UploadedAt}
}

func (fi *davFileInfo) Name() string       { return fi.name }
func (fi *davFileInfo) Size() int64        { return fi.size }
func (fi *davFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *davFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *davFileInfo) IsDir() bool        { return fi.isDir }
func (fi *davFileInfo) Sys() any           { return nil }

// --- Directory implementation ---

type davDir struct {
	info     *davFileInfo
	children []os.FileInfo
	pos      int
}

func (d *davDir) Close() error                                 { return nil }
func (d *davDir) Read(p []byte) (int, error)                   { return 0, os.ErrInvalid }
func (d *davDir) Write(p []byte) (int, error)                  { return 0, os.ErrInvalid }
func (d *davDir) Seek(offset int64, whence int) (int64, error) { return 0, os.ErrInvalid }
func (d *davDir) Stat() (os.FileInfo, error)                   { return d.info, nil }

func (d *davDir) Readdir(count int) ([]os.FileInfo, error) {
	if d.pos >= len(d.children) {
		if count <= 0 {
			return nil, nil
		}
		return nil, io.EOF
	}

	if count <= 0 || count > len(d.children)-d.pos {
		count = len(d.children) - d.pos
	}

	result := d.children[d.pos : d.pos+count]
	d.pos += count
	return result, nil
}

// --- Read-only file implementation ---

type davFile struct {
	info   *davFileInfo
	reader io.ReadSeeker
	closer io.Closer
}

func (f *davFile) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func (f *davFile) Read(p []byte) (int, error)                   { return f.reader.Read(p) }
func (f *davFile) Write(p []byte) (int, error)                  { return 0, os.ErrInvalid }
func (f *davFile) Seek(offset int64, whence int) (int64, error) { return f.reader.Seek(offset, whence) }
func (f *davFile) Stat() (os.FileInfo, error)                   { return f.info, nil }
func (f *davFile) Readdir(count int) ([]os.FileInfo, error)     { return nil, os.ErrInvalid }

// --- Write file implementation ---

type davWriteFile struct {
	ctx         context.Context
	name        string
	library     *library.Library
	buffer      *bytes.Buffer
	maxFileSize int64
	failed      error
	closed      bool
}

// Close hands the buffered body to the library, which validates, stores and
// indexes it in one step. A body that failed to buffer is dropped so the
// stored file under the same name stays as it was.
func (f *davWriteFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if f.failed != nil {
		f.buffer.Reset()
		return f.failed
	}

	_, err := f.library.Save(f.ctx, f.name, f.buffer)
	return err
}

func (f *davWriteFile) Read(p []byte) (int, error) { return 0, os.ErrInvalid }

func (f *davWriteFile) Write(p []byte) (int, error) {
	if f.failed != nil {
		return 0, f.failed
	}
	if f.maxFileSize > 0 && int64(f.buffer.Len()+len(p)) > f.maxFileSize {
		f.failed = errTooLarge
		return 0, f.failed
	}
	return f.buffer.Write(p)
}

func (f *davWriteFile) Seek(offset int64, whence int) (int64, error) { return 0, os.ErrInvalid }

func (f *davWriteFile) Stat() (os.FileInfo, error) {
	return &davFileInfo{
		name:    f.name,
		size:    int64(f.buffer.Len()),
		mode:    0644,
		modTime: time.Now(),
	}, nil
}

func (f *davWriteFile) Readdir(count int) ([]fs.FileInfo, error) { return nil, os.ErrInvalid }
