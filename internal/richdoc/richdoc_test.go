package richdoc

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/paste-proxy/internal/editor"
)

var (
	_ editor.Structured        = (*Editor)(nil)
	_ editor.UploadAdapterHost = (*Editor)(nil)
)

func paragraph(text string) *Element {
	return &Element{Name: "paragraph", Text: text}
}

func TestChange_InsertsAtSelection(t *testing.T) {
	ed := New(&Document{
		Blocks:    []*Element{paragraph("a"), paragraph("b")},
		Selection: Selection{Offset: 1},
	})

	err := ed.Model().Change(func(w editor.Writer) error {
		return w.InsertContent(w.CreateElement("image", map[string]string{"src": "L", "alt": "x.png"}))
	})
	require.NoError(t, err)

	doc := ed.Document()
	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, "a", doc.Blocks[0].Text)
	assert.Equal(t, "image", doc.Blocks[1].Name)
	assert.Equal(t, map[string]string{"src": "L", "alt": "x.png"}, doc.Blocks[1].Attrs)
	assert.Equal(t, "b", doc.Blocks[2].Text)
	assert.Equal(t, 2, doc.Selection.Offset)
}

func TestChange_RollsBackOnError(t *testing.T) {
	ed := New(&Document{Blocks: []*Element{paragraph("a")}})
	boom := errors.New("boom")

	err := ed.Model().Change(func(w editor.Writer) error {
		require.NoError(t, w.InsertContent(w.CreateElement("image", nil)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Len(t, ed.Document().Blocks, 1)
}

func TestChange_RejectsUnnamedElement(t *testing.T) {
	ed := New(nil)

	err := ed.Model().Change(func(w editor.Writer) error {
		return w.InsertContent(editor.Node{})
	})
	assert.Error(t, err)
}

func TestDocument_IsACopy(t *testing.T) {
	ed := New(&Document{Blocks: []*Element{paragraph("a")}})

	doc := ed.Document()
	doc.Blocks[0].Text = "mutated"

	assert.Equal(t, "a", ed.Document().Blocks[0].Text)
}

func TestNewClampsSelection(t *testing.T) {
	ed := New(&Document{Blocks: []*Element{paragraph("a")}, Selection: Selection{Offset: 7}})
	assert.Equal(t, 1, ed.Document().Selection.Offset)
}

func TestPasteNative_InlinesUntilSuppressed(t *testing.T) {
	ed := New(nil)

	inserted, err := ed.PasteNative(context.Background(), []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	assert.True(t, inserted)

	doc := ed.Document()
	require.Len(t, doc.Blocks, 1)
	assert.True(t, strings.HasPrefix(doc.Blocks[0].Attrs["src"], "data:image/png;base64,"))

	require.NoError(t, ed.SuppressUploadAdapter())
	require.NoError(t, ed.SuppressUploadAdapter())

	inserted, err = ed.PasteNative(context.Background(), []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Len(t, ed.Document().Blocks, 1)
}

func TestSuppressUploadAdapter_NoRepository(t *testing.T) {
	ed := &Editor{model: newModel(nil), plugins: newPluginRegistry()}
	assert.Error(t, ed.SuppressUploadAdapter())
}

func TestAdapterInsertAndSuppress(t *testing.T) {
	ed := New(nil)
	reg := editor.NewRegistry(nil)
	a := editor.NewAdapter(reg, 0, nil)

	h, err := reg.Mount("ck", ed)
	require.NoError(t, err)
	assert.Equal(t, editor.KindStructured, h.Kind)

	require.NoError(t, a.SuppressNativeUploadHandler(h))
	require.NoError(t, a.Insert(h, "shot.png", "https://fb/api/raw/uploads/n?inline=true"))

	inserted, err := ed.PasteNative(context.Background(), []byte{1}, "image/png")
	require.NoError(t, err)
	assert.False(t, inserted, "native path must not insert a second image")

	doc := ed.Document()
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "shot.png", doc.Blocks[0].Attrs["alt"])
}

func TestReadWriteDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")

	missing, err := ReadDocument(path)
	require.NoError(t, err)
	assert.Empty(t, missing.Blocks)

	ed := New(&Document{Blocks: []*Element{paragraph("hello")}, Selection: Selection{Offset: 1}})
	require.NoError(t, ed.WriteFile(path))

	reopened, err := Open(path)
	require.NoError(t, err)

	doc := reopened.Document()
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "hello", doc.Blocks[0].Text)
	assert.Equal(t, 1, doc.Selection.Offset)
}
