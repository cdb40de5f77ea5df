package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/localmedia/player/internal/media"
	"github.com/localmedia/player/internal/storage"
)

// Saver persists uploaded files
type Saver interface {
	Save(ctx context.Context, name string, content io.Reader) (storage.StoredFile, error)
}

// UploadHandler keeps submitted files in the library and describes them
// from the bytes already in memory
type UploadHandler struct {
	saver       Saver
	maxMemory   int64
	maxFileSize int64
}

// NewUpload creates the upload source. maxFileSize caps each file; 0 means
// unlimited.
func NewUpload(saver Saver, maxFileSize int64) *UploadHandler {
	return &UploadHandler{saver: saver, maxMemory: 32 << 20, maxFileSize: maxFileSize}
}

func (h *UploadHandler) Kind() Kind { return Upload }

// Collect reads every multipart part named "file"
func (h *UploadHandler) Collect(r *http.Request) (Input, error) {
	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		return Input{}, fmt.Errorf("%w: %w", ErrNoInput, err)
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		return Input{}, ErrNoInput
	}

	in := Input{Kind: Upload}
	for _, fh := range headers {
		if h.maxFileSize > 0 && fh.Size > h.maxFileSize {
			return Input{}, fmt.Errorf("upload %s: %w", fh.Filename, &http.MaxBytesError{Limit: h.maxFileSize})
		}
		f, err := fh.Open()
		if err != nil {
			return Input{}, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return Input{}, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		in.Files = append(in.Files, UploadedFile{Name: fh.Filename, Data: data})
	}
	return in, nil
}

// Describe saves each file and returns one descriptor per file. Files that
// fail validation come back as descriptors with a warning; storage
// failures abort.
func (h *UploadHandler) Describe(ctx context.Context, in Input) ([]Descriptor, error) {
	if len(in.Files) == 0 {
		return nil, ErrNoInput
	}

	descs := make([]Descriptor, 0, len(in.Files))
	for _, f := range in.Files {
		stored, err := h.saver.Save(ctx, f.Name, bytes.NewReader(f.Data))
		switch {
		case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrPathEscape):
			descs = append(descs, Descriptor{
				Widget:   WidgetNone,
				Origin:   FromBytes,
				Name:     f.Name,
				Category: media.FromName(f.Name),
				Warning:  err.Error(),
			})
			continue
		case err != nil:
			return nil, err
		}

		descs = append(descs, Descriptor{
			Widget:      WidgetFor(stored.Category),
			Origin:      FromBytes,
			Name:        stored.Name,
			Category:    stored.Category,
			ContentType: media.ContentType(stored.Name),
			Size:        stored.Size,
			Data:        f.Data,
			Path:        stored.Path,
		})
	}
	return descs, nil
}
