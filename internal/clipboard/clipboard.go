// Package clipboard models paste events and turns their image items into
// upload payloads. Items arrive from three places: files named on the
// command line, a watched screenshot inbox, and editor hosts connected
// through the host bridge. All three funnel into PasteEvent.
package clipboard

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// imageTypePrefix marks clipboard items the pipeline takes over. Everything
// else is left to the editor's native paste handling.
const imageTypePrefix = "image/"

// defaultBaseName is the name browsers give pasted screenshots.
const defaultBaseName = "image"

// Item is one entry of a clipboard payload.
type Item struct {
	Type string // MIME type as reported by the source
	Name string // may be empty for raw screenshots
	Data []byte // nil when the source could not materialize a file
}

// IsImage reports whether the item carries an image MIME type.
func (it Item) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(it.Type), imageTypePrefix)
}

// PasteEvent is a single paste gesture. Source is informational
// ("cli", "inbox", "bridge") and only used for logging.
type PasteEvent struct {
	Source string
	Items  []Item
}

// ImagePayload is the transient upload unit built from an image item. It is
// consumed once per upload attempt and never persisted.
type ImagePayload struct {
	Data         []byte
	OriginalName string
	MIMEType     string
}

// Size returns the payload length in bytes.
func (p ImagePayload) Size() int64 {
	return int64(len(p.Data))
}

// Images extracts one payload per image item that has data. Non-image items
// and image items the source could not read are skipped, mirroring a
// clipboard item whose getAsFile() yields nothing.
func (e PasteEvent) Images() []ImagePayload {
	var out []ImagePayload

	for _, it := range e.Items {
		if !it.IsImage() || it.Data == nil {
			continue
		}

		mimeType := strings.ToLower(it.Type)

		out = append(out, ImagePayload{
			Data:         it.Data,
			OriginalName: payloadName(it.Name, mimeType),
			MIMEType:     mimeType,
		})
	}

	return out
}

// HasImages reports whether the event carries at least one usable image.
// Only then is native paste handling suppressed.
func (e PasteEvent) HasImages() bool {
	return len(e.Images()) > 0
}

// payloadName normalizes the original name to NFC and fills in a default
// for nameless screenshots. Path separators are replaced so the name stays
// a single path segment on the server.
func payloadName(name, mimeType string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultBaseName + extensionFor(mimeType)
	}

	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)

	return norm.NFC.String(name)
}

// commonExtensions covers the formats browsers put on the clipboard. The
// stdlib mime table is platform dependent (image/jpeg maps to ".jfif" on
// some systems), so the common cases are pinned here.
var commonExtensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
	"image/svg+xml": ".svg",
	"image/tiff":    ".tiff",
	"image/avif":    ".avif",
	"image/heic":    ".heic",
}

func extensionFor(mimeType string) string {
	if ext, ok := commonExtensions[mimeType]; ok {
		return ext
	}

	sub := strings.TrimPrefix(mimeType, imageTypePrefix)
	if i := strings.IndexAny(sub, "+;"); i >= 0 {
		sub = sub[:i]
	}

	if sub == "" {
		return ""
	}

	return "." + sub
}
