package clipboard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestImages_FiltersNonImages(t *testing.T) {
	ev := PasteEvent{Items: []Item{
		{Type: "text/plain", Data: []byte("hello")},
		{Type: "image/png", Name: "a.png", Data: pngHeader},
		{Type: "text/html", Data: []byte("<b>x</b>")},
	}}

	got := ev.Images()
	require.Len(t, got, 1)
	assert.Equal(t, "a.png", got[0].OriginalName)
	assert.Equal(t, "image/png", got[0].MIMEType)
	assert.Equal(t, int64(len(pngHeader)), got[0].Size())
	assert.True(t, ev.HasImages())
}

func TestImages_SkipsItemsWithoutData(t *testing.T) {
	ev := PasteEvent{Items: []Item{{Type: "image/png", Name: "ghost.png"}}}

	assert.Empty(t, ev.Images())
	assert.False(t, ev.HasImages())
}

func TestImages_TextOnlyEventIsNotHandled(t *testing.T) {
	ev := PasteEvent{Items: []Item{{Type: "text/plain", Data: []byte("x")}}}

	assert.False(t, ev.HasImages())
}

func TestImages_MultipleImagesKeepOrder(t *testing.T) {
	ev := PasteEvent{Items: []Item{
		{Type: "image/png", Name: "one.png", Data: pngHeader},
		{Type: "IMAGE/JPEG", Name: "two.jpg", Data: []byte{0xff, 0xd8, 0xff}},
	}}

	got := ev.Images()
	require.Len(t, got, 2)
	assert.Equal(t, "one.png", got[0].OriginalName)
	assert.Equal(t, "two.jpg", got[1].OriginalName)
	assert.Equal(t, "image/jpeg", got[1].MIMEType)
}

func TestPayloadName(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		mimeType string
		want     string
	}{
		{"keeps name", "shot.png", "image/png", "shot.png"},
		{"default png", "", "image/png", "image.png"},
		{"default jpeg", "  ", "image/jpeg", "image.jpg"},
		{"unknown subtype", "", "image/x-icon", "image.x-icon"},
		{"svg suffix", "", "image/svg+xml", "image.svg"},
		{"separators replaced", "a/b\\c.png", "image/png", "a_b_c.png"},
		{"nfc", "café.png", "image/png", "café.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, payloadName(tt.in, tt.mimeType))
		})
	}
}

func TestDetectType(t *testing.T) {
	assert.Equal(t, "image/png", DetectType("noext", pngHeader))
	assert.Equal(t, "image/png", DetectType("x.txt", pngHeader))
	assert.Equal(t, "image/svg+xml", DetectType("d.svg", []byte("<svg xmlns='http://www.w3.org/2000/svg'/>")))
	assert.Equal(t, "text/plain", DetectType("notes", []byte("just text")))
}

func TestEventFromFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(a, pngHeader, 0o600))
	require.NoError(t, os.WriteFile(b, []byte("plain"), 0o600))

	ev, err := EventFromFiles("cli", a, b)
	require.NoError(t, err)
	require.Len(t, ev.Items, 2)
	assert.Equal(t, "cli", ev.Source)

	imgs := ev.Images()
	require.Len(t, imgs, 1)
	assert.Equal(t, "a.png", imgs[0].OriginalName)
}

func TestEventFromFiles_MissingFile(t *testing.T) {
	_, err := EventFromFiles("cli", filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clipboard: reading")
}
