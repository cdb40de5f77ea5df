package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/localmedia/player/internal/embed"
	"github.com/localmedia/player/internal/media"
	"github.com/localmedia/player/internal/render"
	"github.com/localmedia/player/internal/source"
	"github.com/localmedia/player/internal/storage"
)

var pageTitles = map[source.Kind]string{
	source.Upload: "Uploaded Media",
	source.Local:  "Local Media",
	source.Web:    "Web Media",
}

// handlePlay runs one input source and renders whatever it described
func (h *Handler) handlePlay(kind source.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if kind == source.Upload {
			h.limitBody(w, r)
		}

		descs, err := h.sources.Run(r.Context(), kind, r)
		if err != nil {
			h.sourceError(w, r, kind, err)
			return
		}

		views := make([]render.View, 0, len(descs))
		for _, d := range descs {
			views = append(views, viewFor(d))
		}
		h.writePage(w, r, pageTitles[kind], views)
	}
}

func (h *Handler) sourceError(w http.ResponseWriter, r *http.Request, kind source.Kind, err error) {
	switch {
	case tooLarge(err):
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, source.ErrNoInput):
		http.Error(w, "No input provided", http.StatusBadRequest)
	case errors.Is(err, source.ErrLocalDisabled), errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, source.ErrOutsideRoots):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, storage.ErrUnsupportedType):
		http.Error(w, "Unsupported file type", http.StatusBadRequest)
	default:
		h.logger.Error("source failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("source", string(kind)),
			zap.Error(err))
		http.Error(w, "Failed to load media", http.StatusInternalServerError)
	}
}

// viewFor turns a descriptor into something the viewer template can draw.
// Byte payloads are already in the store, so they are linked rather than
// inlined.
func viewFor(d source.Descriptor) render.View {
	v := render.View{
		Title:       d.Name,
		Kind:        string(d.Widget),
		ContentType: d.ContentType,
		Category:    string(d.Category),
		Warning:     d.Warning,
	}
	if d.Size > 0 {
		v.Size = humanSize(d.Size)
	}

	switch d.Origin {
	case source.FromBytes:
		v.Src = mediaURL(d.Name)
		v.Download = true
	case source.FromPath:
		v.Src = "/local/media?path=" + url.QueryEscape(d.Path)
	case source.FromURL:
		v.Src = d.URL
		if d.Embed != nil {
			v.Provider = string(d.Embed.Provider)
			if v.Title == "" {
				v.Title = d.Embed.URL
			}
		}
	}
	if v.Kind == render.KindNone {
		v.Src = ""
		v.Download = false
	}
	return v
}

func (h *Handler) handleLocalList(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		if !h.local.Enabled() {
			writeError(w, http.StatusNotFound, source.ErrLocalDisabled.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "roots": h.local.Roots()})
		return
	}

	entries, err := h.local.Scan(dir)
	if err != nil {
		switch {
		case errors.Is(err, source.ErrLocalDisabled), errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, source.ErrOutsideRoots):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			h.logger.Error("local scan failed", zap.String("dir", dir), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to read directory")
		}
		return
	}
	if entries == nil {
		entries = []source.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"dir":     dir,
		"count":   len(entries),
		"files":   entries,
	})
}

// handleLocalMedia streams a file from a configured local root
func (h *Handler) handleLocalMedia(w http.ResponseWriter, r *http.Request) {
	f, info, err := h.local.Open(r.URL.Query().Get("path"))
	if err != nil {
		h.sourceError(w, r, source.Local, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", media.ContentType(info.Name()))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": info.Name()}))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (h *Handler) handleEmbed(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "No url provided")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "strategy": embed.Classify(raw)})
}

func humanSize(size int64) string {
	const mb = 1024 * 1024
	if size < mb {
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(size)/mb)
}
