package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/localmedia/player/internal/media"
	"github.com/localmedia/player/internal/storage"
)

// Entry is a playable file found in a local directory
type Entry struct {
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Size     int64          `json:"size"`
	Category media.Category `json:"category"`
	ModTime  time.Time      `json:"modified"`
}

// LocalHandler plays files straight from directories on the server host.
// Nothing is copied into the upload store, so large files stream in place.
// Only directories under the configured roots are reachable.
type LocalHandler struct {
	roots []string
}

// NewLocal creates the local directory source. With no roots the source
// is disabled.
func NewLocal(roots []string) (*LocalHandler, error) {
	h := &LocalHandler{}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve local root %s: %w", root, err)
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		h.roots = append(h.roots, abs)
	}
	return h, nil
}

func (h *LocalHandler) Kind() Kind { return Local }

// Enabled reports whether any root is configured
func (h *LocalHandler) Enabled() bool {
	return len(h.roots) > 0
}

// Roots returns the allowed directories
func (h *LocalHandler) Roots() []string {
	out := make([]string, len(h.roots))
	copy(out, h.roots)
	return out
}

// Resolve makes path absolute, follows symlinks and checks that the result
// stays under a root
func (h *LocalHandler) Resolve(path string) (string, error) {
	if !h.Enabled() {
		return "", ErrLocalDisabled
	}
	if path == "" {
		return "", ErrNoInput
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOutsideRoots, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", storage.ErrNotFound
		}
		return "", err
	}

	for _, root := range h.roots {
		if within(root, resolved) {
			return resolved, nil
		}
	}
	return "", ErrOutsideRoots
}

// Scan lists supported files directly inside dir, in natural name order
func (h *LocalHandler) Scan(dir string) ([]Entry, error) {
	resolved, err := h.Resolve(dir)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", storage.ErrIO, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || !media.Supported(filepath.Ext(de.Name())) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:     de.Name(),
			Path:     filepath.Join(resolved, de.Name()),
			Size:     info.Size(),
			Category: media.FromName(de.Name()),
			ModTime:  info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return naturalLess(entries[i].Name, entries[j].Name)
	})
	return entries, nil
}

// Open opens a supported regular file under a root
func (h *LocalHandler) Open(path string) (*os.File, os.FileInfo, error) {
	resolved, err := h.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	if !media.Supported(filepath.Ext(resolved)) {
		return nil, nil, storage.ErrUnsupportedType
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", storage.ErrIO, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %v", storage.ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, storage.ErrNotFound
	}
	return f, info, nil
}

// Collect reads ?dir= and the optional ?file= pick
func (h *LocalHandler) Collect(r *http.Request) (Input, error) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		return Input{}, ErrNoInput
	}
	return Input{Kind: Local, Dir: dir, Pick: r.URL.Query().Get("file")}, nil
}

// Describe returns a path descriptor for the picked file, or for the first
// file in the directory when nothing was picked. An empty directory
// describes nothing.
func (h *LocalHandler) Describe(ctx context.Context, in Input) ([]Descriptor, error) {
	entries, err := h.Scan(in.Dir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	picked := entries[0]
	if in.Pick != "" {
		found := false
		for _, e := range entries {
			if e.Name == in.Pick {
				picked, found = e, true
				break
			}
		}
		if !found {
			return nil, storage.ErrNotFound
		}
	}

	return []Descriptor{{
		Widget:      WidgetFor(picked.Category),
		Origin:      FromPath,
		Name:        picked.Name,
		Category:    picked.Category,
		ContentType: media.ContentType(picked.Name),
		Size:        picked.Size,
		Path:        picked.Path,
	}}, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// naturalLess orders names case-insensitively with digit runs compared by
// value, so "ep2" sorts before "ep10"
func naturalLess(a, b string) bool {
	ar, br := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		if unicode.IsDigit(ar[i]) && unicode.IsDigit(br[j]) {
			si := i
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			sj := j
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			na := strings.TrimLeft(string(ar[si:i]), "0")
			nb := strings.TrimLeft(string(br[sj:j]), "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if ar[i] != br[j] {
			return ar[i] < br[j]
		}
		i++
		j++
	}
	if len(ar)-i != len(br)-j {
		return len(ar)-i < len(br)-j
	}
	return a < b
}
