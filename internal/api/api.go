package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/localmedia/player/internal/auth"
	"github.com/localmedia/player/internal/config"
	"github.com/localmedia/player/internal/library"
	"github.com/localmedia/player/internal/source"
)

// Handler is the main API handler
type Handler struct {
	config      *config.Config
	library     *library.Library
	sources     *source.Registry
	local       *source.LocalHandler
	gate        *auth.Gate
	logger      *zap.Logger
	router      chi.Router
	webdav      *WebDAVHandler
	maxFileSize int64 // 0 means unlimited
}

// New creates a new API handler
func New(cfg *config.Config, lib *library.Library, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	local, err := source.NewLocal(cfg.Local.Roots)
	if err != nil {
		return nil, fmt.Errorf("failed to set up local source: %w", err)
	}

	gate := auth.NewGate(cfg.Auth.AdminSecret, cfg.Auth.AllowQueryToken)
	maxFileSize := cfg.MaxFileSize()

	h := &Handler{
		config:      cfg,
		library:     lib,
		sources:     source.NewRegistry(source.NewUpload(lib, maxFileSize), local, source.NewWeb()),
		local:       local,
		gate:        gate,
		logger:      logger,
		router:      chi.NewRouter(),
		webdav:      NewWebDAV(lib, gate, maxFileSize, logger),
		maxFileSize: maxFileSize,
	}

	h.setupRoutes()
	return h, nil
}

func (h *Handler) setupRoutes() {
	r := h.router
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(accessLog(h.logger))
	r.Use(cors(h.config.CORS.AllowedOrigins))

	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Get("/robots.txt", h.handleRobots)

	r.Post("/upload", h.handleUpload)
	r.Get("/list", h.handleList)
	r.With(h.gate.Middleware).Delete("/delete/{filename}", h.handleDelete)
	r.With(h.gate.Middleware).Post("/admin/sync", h.handleSync)

	r.Get("/media/{filename}", h.handleMedia)
	r.Get("/view/{filename}", h.handleView)

	r.Post("/play/upload", h.handlePlay(source.Upload))
	r.Get("/play/web", h.handlePlay(source.Web))
	r.Get("/play/local", h.handlePlay(source.Local))
	r.Get("/local", h.handleLocalList)
	r.Get("/local/media", h.handleLocalMedia)
	r.Get("/embed", h.handleEmbed)

	r.Handle("/webdav", h.webdav)
	r.Handle("/webdav/*", h.webdav)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add security headers
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Robots-Tag", "noindex, nofollow")
	w.Header().Set("X-Frame-Options", "SAMEORIGIN")
	w.Header().Set("Referrer-Policy", "no-referrer")
	// CSP: scripts from CDN for the document renderers; media and frames
	// may come from anywhere since web sources point off-site
	w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://cdn.jsdelivr.net 'unsafe-inline'; style-src 'self' https://cdn.jsdelivr.net 'unsafe-inline'; img-src * data: blob:; media-src * blob:; frame-src *; frame-ancestors 'self';")

	h.router.ServeHTTP(w, r)
}

var playUsage = map[source.Kind]string{
	source.Upload: "POST /play/upload",
	source.Local:  "GET /play/local?dir=",
	source.Web:    "GET /play/web?url=",
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString("media player\n\nPOST /upload  GET /list  GET /view/{filename}\n")
	for i, kind := range h.sources.Kinds() {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(playUsage[kind])
	}
	b.WriteString("\n")

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(b.String()))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Media player API is running",
	})
}

func (h *Handler) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("User-agent: *\nDisallow: /\n"))
}
