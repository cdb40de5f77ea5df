package source

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/localmedia/player/internal/embed"
	"github.com/localmedia/player/internal/media"
)

// WebHandler describes a remote URL. The URL is not fetched or checked.
type WebHandler struct{}

// NewWeb creates the web URL source
func NewWeb() *WebHandler {
	return &WebHandler{}
}

func (h *WebHandler) Kind() Kind { return Web }

// Collect reads the url query or form value
func (h *WebHandler) Collect(r *http.Request) (Input, error) {
	url := strings.TrimSpace(r.FormValue("url"))
	if url == "" {
		return Input{}, ErrNoInput
	}
	return Input{Kind: Web, URL: url}, nil
}

// Describe always succeeds for a non-empty URL; problems surface as a
// warning on the descriptor
func (h *WebHandler) Describe(ctx context.Context, in Input) ([]Descriptor, error) {
	if in.URL == "" {
		return nil, ErrNoInput
	}

	s := embed.Classify(in.URL)
	d := Descriptor{
		Origin:   FromURL,
		Name:     in.URL,
		Category: s.Category(),
		URL:      s.EmbedURL,
		Embed:    &s,
		Warning:  s.Warning,
	}

	switch {
	case s.EmbedURL == "":
		d.Widget = WidgetNone
	case s.Frame():
		d.Widget = WidgetFrame
	default:
		d.Widget = WidgetFor(s.Category())
		if path := urlPath(in.URL); media.Supported(filepath.Ext(path)) {
			d.ContentType = media.ContentType(path)
		}
	}
	return []Descriptor{d}, nil
}

// urlPath strips query and fragment so the extension can be looked up
func urlPath(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}
