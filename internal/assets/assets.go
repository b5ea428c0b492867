// Package assets holds the server's embedded static web UI: a compile-time
// table mapping a request path to its bytes and content type. None of this
// is generated from the task table; it is an opaque, fixed resource set
// shipped inside the binary.
package assets

import (
	"embed"
	"strings"
)

//go:embed resources
var resourcesFS embed.FS

// Resource is one embedded static file, keyed by the path it's served at
// under /web/.
type Resource struct {
	Path        string // slash-separated, relative to /web/
	ContentType string
}

const (
	contentTypeHTML       = "text/html; charset=utf-8"
	contentTypeCSS        = "text/css"
	contentTypeJavaScript = "application/javascript"
	contentTypeImagePNG   = "image/png"
)

// table lists every servable resource. It mirrors the on-disk layout under
// resources/, but the request path (the map key) is independent of the
// embedded file path so the two can diverge without the server noticing.
var table = map[string]struct {
	file        string
	contentType string
}{
	"tasks":             {"resources/tasks.html", contentTypeHTML},
	"tasks/task":        {"resources/tasks/task.html", contentTypeHTML},
	"favicon.ico":       {"resources/favicon.ico", contentTypeImagePNG},
	"main.css":          {"resources/main.css", contentTypeCSS},
	"modules/api":       {"resources/modules/api.mjs", contentTypeJavaScript},
	"modules/html":      {"resources/modules/html.mjs", contentTypeJavaScript},
	"modules/task":      {"resources/modules/task.mjs", contentTypeJavaScript},
	"modules/tasks":     {"resources/modules/tasks.mjs", contentTypeJavaScript},
	"modules/utils":     {"resources/modules/utils.mjs", contentTypeJavaScript},
}

// Lookup resolves a request path (the portion after /web/ or /favicon.ico
// at the root) to its bytes and content type. The bool is false for an
// unknown path.
func Lookup(path string) (data []byte, contentType string, ok bool) {
	path = strings.TrimSuffix(path, "/")

	entry, ok := table[path]
	if !ok {
		return nil, "", false
	}

	data, err := resourcesFS.ReadFile(entry.file)
	if err != nil {
		// table and embed.FS are both compiled in; a mismatch here is a
		// build-time defect, not a runtime condition callers should handle.
		panic("assets: embedded resource missing: " + entry.file)
	}

	return data, entry.contentType, true
}
