package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"html/template"
	"path/filepath"
	"strings"
)

//go:embed templates/markdown.html
var markdownTemplate string

//go:embed templates/code.html
var codeTemplate string

//go:embed templates/viewer.html
var viewerTemplate string

var viewer = template.Must(template.New("viewer").Parse(viewerTemplate))

// Widget kinds understood by the viewer template
const (
	KindVideo    = "video"
	KindAudio    = "audio"
	KindImage    = "image"
	KindDocument = "document"
	KindFrame    = "frame"
	KindNone     = "none"
)

// View is one media item on a viewer page
type View struct {
	Title       string
	Kind        string
	Src         string
	ContentType string
	Provider    string
	Size        string
	Category    string
	Warning     string
	Download    bool
}

type pageData struct {
	Title string
	Views []View
}

// Page renders a viewer page with one panel per view
func Page(title string, views []View) ([]byte, error) {
	if title == "" {
		title = "Media Player"
	}

	var buf bytes.Buffer
	if err := viewer.Execute(&buf, pageData{Title: title, Views: views}); err != nil {
		return nil, fmt.Errorf("failed to render viewer: %w", err)
	}
	return buf.Bytes(), nil
}

// CanRenderDocument returns true for documents rendered as HTML rather
// than handed to the browser as-is
func CanRenderDocument(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// Document converts a markdown or text document to HTML for browser display
func Document(filename string, content []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return renderMarkdown(content, filename)
	case ".txt":
		return renderCode(content, filename, "plaintext")
	}
	return nil, fmt.Errorf("cannot render %s as a document", filename)
}

func renderMarkdown(content []byte, filename string) ([]byte, error) {
	title := filename
	if title == "" {
		title = "Document"
	}

	// Escape content for embedding in JavaScript template literal
	escaped := escapeForJSTemplateLiteral(string(content))

	result := strings.ReplaceAll(markdownTemplate, "{{TITLE}}", html.EscapeString(title))
	result = strings.ReplaceAll(result, "{{CONTENT}}", escaped)

	return []byte(result), nil
}

// escapeForJSTemplateLiteral escapes content for safe embedding in JS template literals
func escapeForJSTemplateLiteral(s string) string {
	// Escape backslashes first, then backticks, then ${
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	// a literal </script> would end the script element early
	s = strings.ReplaceAll(s, "</", "<\\/")
	return s
}

func renderCode(content []byte, filename string, language string) ([]byte, error) {
	title := filename
	if title == "" {
		title = "Document"
	}

	// Escape content for embedding in HTML
	escaped := html.EscapeString(string(content))

	result := strings.ReplaceAll(codeTemplate, "{{TITLE}}", html.EscapeString(title))
	result = strings.ReplaceAll(result, "{{LANGUAGE}}", language)
	result = strings.ReplaceAll(result, "{{CONTENT}}", escaped)

	return []byte(result), nil
}

// IsBinary is a simple check whether content looks binary
func IsBinary(content []byte) bool {
	// Check first 512 bytes for null bytes
	checkLen := 512
	if len(content) < checkLen {
		checkLen = len(content)
	}

	return bytes.Contains(content[:checkLen], []byte{0})
}
