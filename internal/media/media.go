package media

import (
	"mime"
	"path/filepath"
	"strings"
)

// Category is the kind of viewer a file needs
type Category string

const (
	Video    Category = "Video"
	Audio    Category = "Audio"
	Image    Category = "Image"
	Document Category = "Document"
	Unknown  Category = "Unknown"
)

// Extension sets. .ogg is both a video and an audio container.
var (
	videoExts    = []string{".mp4", ".webm", ".ogg", ".mov", ".avi"}
	audioExts    = []string{".mp3", ".wav", ".ogg", ".m4a", ".flac"}
	imageExts    = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}
	documentExts = []string{".pdf", ".md", ".txt"}
)

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".md":   "text/markdown; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
}

// Normalize lowercases an extension and makes sure it has a leading dot
func Normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Classify maps an extension (dot optional, any case) to its category.
// Unrecognized extensions yield Unknown.
func Classify(ext string) Category {
	ext = Normalize(ext)
	switch {
	case contains(videoExts, ext):
		return Video
	case contains(audioExts, ext):
		return Audio
	case contains(imageExts, ext):
		return Image
	case contains(documentExts, ext):
		return Document
	}
	return Unknown
}

// FromName classifies a filename by its extension
func FromName(name string) Category {
	return Classify(filepath.Ext(name))
}

// Supported reports whether the extension is in any of the sets
func Supported(ext string) bool {
	return Classify(ext) != Unknown
}

// Extensions returns a copy of the extension set for a category.
// Unknown has no extensions.
func Extensions(c Category) []string {
	var src []string
	switch c {
	case Video:
		src = videoExts
	case Audio:
		src = audioExts
	case Image:
		src = imageExts
	case Document:
		src = documentExts
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// All returns every supported extension once, in category order
func All() []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range [][]string{videoExts, audioExts, imageExts, documentExts} {
		for _, ext := range set {
			if !seen[ext] {
				seen[ext] = true
				out = append(out, ext)
			}
		}
	}
	return out
}

// ContentType returns the MIME type to serve a file with
func ContentType(name string) string {
	ext := Normalize(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func contains(set []string, ext string) bool {
	for _, e := range set {
		if e == ext {
			return true
		}
	}
	return false
}
