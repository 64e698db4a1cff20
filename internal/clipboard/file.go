package clipboard

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// sniffLen is how many leading bytes http.DetectContentType inspects.
const sniffLen = 512

// ItemFromFile reads path into a clipboard item. The MIME type is sniffed
// from content first and falls back to the extension, because screenshot
// tools sometimes save PNG data under a generic name.
func ItemFromFile(path string) (Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Item{}, fmt.Errorf("clipboard: reading %s: %w", path, err)
	}

	return Item{
		Type: DetectType(filepath.Base(path), data),
		Name: filepath.Base(path),
		Data: data,
	}, nil
}

// EventFromFiles builds one paste event out of several files, as if they
// had been copied together.
func EventFromFiles(source string, paths ...string) (PasteEvent, error) {
	ev := PasteEvent{Source: source, Items: make([]Item, 0, len(paths))}

	for _, p := range paths {
		it, err := ItemFromFile(p)
		if err != nil {
			return PasteEvent{}, err
		}

		ev.Items = append(ev.Items, it)
	}

	return ev, nil
}

// DetectType returns the MIME type of data, consulting name's extension when
// content sniffing is inconclusive.
func DetectType(name string, data []byte) string {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	sniffed := http.DetectContentType(head)
	if strings.HasPrefix(sniffed, imageTypePrefix) {
		return sniffed
	}

	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		if i := strings.IndexByte(byExt, ';'); i >= 0 {
			byExt = byExt[:i]
		}

		return byExt
	}

	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}

	return sniffed
}
