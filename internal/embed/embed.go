package embed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/localmedia/player/internal/media"
)

// ErrMalformedSource marks a URL that matched a provider but lacks the
// parts needed to embed it. It is reported as a warning, never returned
// as a failure.
var ErrMalformedSource = errors.New("malformed source")

// Provider names how a URL is displayed
type Provider string

const (
	YouTube     Provider = "youtube"
	Instagram   Provider = "instagram"
	Drive       Provider = "drive"
	DirectVideo Provider = "direct-video"
	DirectAudio Provider = "direct-audio"
	DirectImage Provider = "direct-image"
	Generic     Provider = "generic-iframe"
)

// Strategy is the embed instruction for one URL
type Strategy struct {
	Provider Provider `json:"provider"`
	URL      string   `json:"url"`
	EmbedURL string   `json:"embed_url,omitempty"`
	ID       string   `json:"id,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}

// Frame reports whether the strategy is rendered in an iframe
func (s Strategy) Frame() bool {
	switch s.Provider {
	case YouTube, Instagram, Drive, Generic:
		return true
	}
	return false
}

// Category is the media category a direct link points at. Framed content
// is Unknown.
func (s Strategy) Category() media.Category {
	switch s.Provider {
	case DirectVideo:
		return media.Video
	case DirectAudio:
		return media.Audio
	case DirectImage:
		return media.Image
	}
	return media.Unknown
}

// Err returns the warning as an ErrMalformedSource, or nil
func (s Strategy) Err() error {
	if s.Warning == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMalformedSource, s.Warning)
}

// Classify picks an embed strategy for url. Rules are tried in order and
// the first match wins; anything unmatched falls through to a generic
// iframe, which many sites refuse to be framed in. The URL is never fetched.
func Classify(url string) Strategy {
	url = strings.TrimSpace(url)
	lower := strings.ToLower(url)

	switch {
	case strings.Contains(url, "youtube.com/watch") || strings.Contains(url, "youtu.be/"):
		return youtube(url)
	case strings.Contains(url, "instagram.com"):
		return Strategy{Provider: Instagram, URL: url, EmbedURL: url + "embed"}
	case strings.Contains(url, "drive.google.com"):
		return drive(url)
	case containsAny(lower, media.Extensions(media.Video)):
		return Strategy{Provider: DirectVideo, URL: url, EmbedURL: url}
	case containsAny(lower, media.Extensions(media.Audio)):
		return Strategy{Provider: DirectAudio, URL: url, EmbedURL: url}
	case containsAny(lower, media.Extensions(media.Image)):
		return Strategy{Provider: DirectImage, URL: url, EmbedURL: url}
	}
	return Strategy{Provider: Generic, URL: url, EmbedURL: url}
}

func youtube(url string) Strategy {
	var id string
	if i := strings.LastIndex(url, "youtu.be/"); i >= 0 {
		id = before(url[i+len("youtu.be/"):], "?")
	} else if i := strings.LastIndex(url, "v="); i >= 0 {
		id = before(url[i+len("v="):], "&")
	}

	if id == "" {
		return Strategy{Provider: YouTube, URL: url, Warning: "no video id in YouTube link"}
	}
	return Strategy{
		Provider: YouTube,
		URL:      url,
		ID:       id,
		EmbedURL: "https://www.youtube.com/embed/" + id,
	}
}

func drive(url string) Strategy {
	const marker = "/file/d/"
	i := strings.Index(url, marker)
	if i < 0 {
		return Strategy{
			Provider: Drive,
			URL:      url,
			Warning:  "use a Google Drive file link (File > Share > Copy link)",
		}
	}

	id := before(url[i+len(marker):], "/")
	if id == "" {
		return Strategy{Provider: Drive, URL: url, Warning: "no file id in Google Drive link"}
	}
	return Strategy{
		Provider: Drive,
		URL:      url,
		ID:       id,
		EmbedURL: "https://drive.google.com/file/d/" + id + "/preview",
	}
}

// before returns s up to the first sep, or all of s
func before(s, sep string) string {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
