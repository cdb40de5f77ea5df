// Package source turns caller input into descriptors the viewer can draw.
// There are three input sources: uploaded files, a directory on the server
// host, and a web URL. Each one collects its own kind of input from a
// request and describes it.
package source

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/localmedia/player/internal/embed"
	"github.com/localmedia/player/internal/media"
)

var (
	ErrNoInput       = errors.New("no input provided")
	ErrLocalDisabled = errors.New("local directory source is disabled")
	ErrOutsideRoots  = errors.New("path is outside the allowed directories")
)

// Kind identifies an input source
type Kind string

const (
	Upload Kind = "upload"
	Local  Kind = "local"
	Web    Kind = "web"
)

// UploadedFile is one submitted file held in memory
type UploadedFile struct {
	Name string
	Data []byte
}

// Input is what a source collected. Which fields are set depends on Kind:
// Files for Upload, Dir and Pick for Local, URL for Web.
type Input struct {
	Kind  Kind
	Files []UploadedFile
	Dir   string
	Pick  string
	URL   string
}

// Widget is how the presentation layer should draw a descriptor
type Widget string

const (
	WidgetVideo    Widget = "video"
	WidgetAudio    Widget = "audio"
	WidgetImage    Widget = "image"
	WidgetDocument Widget = "document"
	WidgetFrame    Widget = "frame"
	WidgetNone     Widget = "none"
)

// Origin says which payload field of a descriptor carries the media
type Origin string

const (
	FromBytes Origin = "bytes"
	FromPath  Origin = "path"
	FromURL   Origin = "url"
)

// Descriptor is a single renderable item. It lives for one render.
type Descriptor struct {
	Widget      Widget          `json:"widget"`
	Origin      Origin          `json:"origin"`
	Name        string          `json:"name"`
	Category    media.Category  `json:"category"`
	ContentType string          `json:"content_type,omitempty"`
	Size        int64           `json:"size,omitempty"`
	Data        []byte          `json:"-"`
	Path        string          `json:"path,omitempty"`
	URL         string          `json:"url,omitempty"`
	Embed       *embed.Strategy `json:"embed,omitempty"`
	Warning     string          `json:"warning,omitempty"`
}

// WidgetFor maps a category to its widget
func WidgetFor(c media.Category) Widget {
	switch c {
	case media.Video:
		return WidgetVideo
	case media.Audio:
		return WidgetAudio
	case media.Image:
		return WidgetImage
	case media.Document:
		return WidgetDocument
	}
	return WidgetNone
}

// Handler is implemented by every input source
type Handler interface {
	Kind() Kind
	Collect(r *http.Request) (Input, error)
	Describe(ctx context.Context, in Input) ([]Descriptor, error)
}

// Registry looks up handlers by kind
type Registry struct {
	handlers map[Kind]Handler
}

// NewRegistry registers handlers; a later handler replaces an earlier one
// of the same kind
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[Kind]Handler)}
	for _, h := range handlers {
		r.handlers[h.Kind()] = h
	}
	return r
}

// Get returns the handler for kind
func (r *Registry) Get(kind Kind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds lists registered kinds in name order
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Run collects input from r and describes it with the handler for kind
func (r *Registry) Run(ctx context.Context, kind Kind, req *http.Request) ([]Descriptor, error) {
	h, ok := r.Get(kind)
	if !ok {
		return nil, ErrNoInput
	}
	in, err := h.Collect(req)
	if err != nil {
		return nil, err
	}
	return h.Describe(ctx, in)
}
