package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/localmedia/player/internal/media"
	"github.com/localmedia/player/internal/render"
	"github.com/localmedia/player/internal/storage"
)

type uploadResponse struct {
	Success    bool    `json:"success"`
	Filename   string  `json:"filename"`
	Size       int64   `json:"size"`
	SizeMB     float64 `json:"size_mb"`
	Path       string  `json:"path"`
	UploadedAt string  `json:"uploaded_at"`
}

type listItem struct {
	Filename   string         `json:"filename"`
	Size       int64          `json:"size"`
	SizeMB     float64        `json:"size_mb"`
	UploadedAt string         `json:"uploaded_at"`
	Type       string         `json:"type"`
	Category   media.Category `json:"category"`
}

type listResponse struct {
	Success bool       `json:"success"`
	Count   int        `json:"count"`
	Files   []listItem `json:"files"`
}

// multipartSlack is the room left above the file size limit for part
// headers and boundaries
const multipartSlack = 64 << 10

// limitBody caps a multipart request body. The limit itself applies per
// file and is checked against the part size after parsing.
func (h *Handler) limitBody(w http.ResponseWriter, r *http.Request) {
	if h.maxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartSlack)
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	h.limitBody(w, r)

	file, header, err := r.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	stored, err := h.library.Save(r.Context(), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			writeError(w, http.StatusBadRequest, "File type not allowed: "+media.Normalize(filepath.Ext(header.Filename))+
				" (allowed: "+strings.Join(media.All(), ", ")+")")
		case errors.Is(err, storage.ErrPathEscape):
			writeError(w, http.StatusBadRequest, "Invalid filename")
		case tooLarge(err):
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		default:
			h.logger.Error("failed to store upload",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("filename", header.Filename),
				zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to store file")
		}
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:    true,
		Filename:   stored.Name,
		Size:       stored.Size,
		SizeMB:     stored.SizeMB(),
		Path:       stored.Path,
		UploadedAt: stored.UploadedAt.Format(time.RFC3339),
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	files := h.library.Files()

	items := make([]listItem, len(files))
	for i, f := range files {
		items[i] = listItem{
			Filename:   f.Name,
			Size:       f.Size,
			SizeMB:     f.SizeMB(),
			UploadedAt: f.UploadedAt.Format(time.RFC3339),
			Type:       f.Ext(),
			Category:   f.Category,
		}
	}

	writeJSON(w, http.StatusOK, listResponse{Success: true, Count: len(items), Files: items})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)

	err := h.library.Delete(r.Context(), name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "File " + name + " deleted successfully"})
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "File not found: "+name)
	case errors.Is(err, storage.ErrPathEscape), errors.Is(err, storage.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "Invalid filename")
	default:
		h.logger.Error("failed to delete file",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("filename", name),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete file")
	}
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	count, err := h.library.Sync(r.Context())
	if err != nil {
		h.logger.Error("index sync failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to sync index")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}

// handleMedia serves the raw bytes of a stored file
func (h *Handler) handleMedia(w http.ResponseWriter, r *http.Request) {
	content, stored, err := h.library.Open(r.Context(), filenameParam(r))
	if err != nil {
		h.notFoundOrFail(w, r, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", media.ContentType(stored.Name))
	// Safely format Content-Disposition to prevent header injection
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": stored.Name}))

	if rs, ok := content.(io.ReadSeeker); ok {
		http.ServeContent(w, r, stored.Name, stored.UploadedAt, rs)
		return
	}
	w.Header().Set("Content-Length", strconv.FormatInt(stored.Size, 10))
	io.Copy(w, content)
}

// handleView renders a stored file: text documents as HTML, everything else
// in the media viewer
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	name := filenameParam(r)
	stored, err := h.library.Stat(r.Context(), name)
	if err != nil {
		h.notFoundOrFail(w, r, err)
		return
	}

	if render.CanRenderDocument(stored.Name) {
		data, err := h.library.Read(r.Context(), stored.Name)
		if err != nil {
			h.notFoundOrFail(w, r, err)
			return
		}
		if !render.IsBinary(data) {
			page, err := render.Document(stored.Name, data)
			if err == nil {
				writeHTML(w, page)
				return
			}
			h.logger.Warn("document render failed, falling back to viewer",
				zap.String("filename", stored.Name), zap.Error(err))
		}
	}

	view := render.View{
		Title:       stored.Name,
		Kind:        kindFor(stored.Category),
		Src:         mediaURL(stored.Name),
		ContentType: media.ContentType(stored.Name),
		Size:        humanSize(stored.Size),
		Category:    string(stored.Category),
		Download:    true,
	}
	h.writePage(w, r, stored.Name, []render.View{view})
}

func (h *Handler) notFoundOrFail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrPathEscape) || errors.Is(err, storage.ErrUnsupportedType) {
		http.NotFound(w, r)
		return
	}
	h.logger.Error("failed to read file",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	http.Error(w, "Failed to read file", http.StatusInternalServerError)
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, title string, views []render.View) {
	page, err := render.Page(title, views)
	if err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	writeHTML(w, page)
}

func writeHTML(w http.ResponseWriter, page []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// filenameParam returns the {filename} segment, decoded when the router
// matched on the escaped path
func filenameParam(r *http.Request) string {
	name := chi.URLParam(r, "filename")
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
	}
	return name
}

func mediaURL(name string) string {
	return "/media/" + url.PathEscape(name)
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func kindFor(c media.Category) string {
	switch c {
	case media.Video:
		return render.KindVideo
	case media.Audio:
		return render.KindAudio
	case media.Image:
		return render.KindImage
	case media.Document:
		return render.KindDocument
	}
	return render.KindNone
}
