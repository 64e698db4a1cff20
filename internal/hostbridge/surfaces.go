package hostbridge

import (
	"sync"

	"github.com/tonimelisma/paste-proxy/internal/editor"
)

// remotePlain is a markdown editor living in the host. The host reports its
// cursor with each paste; edits are sent back as commands.
type remotePlain struct {
	sess *session
	id   string

	mu     sync.Mutex
	cursor editor.Position
}

func (p *remotePlain) CursorFrom() editor.Position {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cursor
}

func (p *remotePlain) setCursorFromHost(pos editor.Position) {
	p.mu.Lock()
	p.cursor = pos
	p.mu.Unlock()
}

func (p *remotePlain) ReplaceSelection(text string) error {
	return p.sess.send(outbound{Type: typeInsert, Surface: "plain", ID: p.id, Markup: text})
}

// SetCursor sends the move; the host clamps it to its document.
func (p *remotePlain) SetCursor(pos editor.Position) error {
	p.setCursorFromHost(pos)

	return p.sess.send(outbound{
		Type:   typeSetCursor,
		ID:     p.id,
		Cursor: &position{Line: pos.Line, Ch: pos.Ch},
	})
}

// remoteStructured is a structured editor living in the host.
type remoteStructured struct {
	sess  *session
	id    string
	model *remoteModel
}

func newRemoteStructured(sess *session, id string) *remoteStructured {
	return &remoteStructured{sess: sess, id: id, model: &remoteModel{sess: sess, id: id}}
}

func (s *remoteStructured) Model() editor.Model { return s.model }

func (s *remoteStructured) SuppressUploadAdapter() error {
	return s.sess.send(outbound{Type: typeSuppress, ID: s.id})
}

// remoteModel buffers a transaction's nodes and ships them when the
// callback succeeds, so a failed transaction sends nothing.
type remoteModel struct {
	sess *session
	id   string
	mu   sync.Mutex
}

func (m *remoteModel) Change(fn func(w editor.Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := &remoteWriter{}
	if err := fn(w); err != nil {
		return err
	}

	for i := range w.nodes {
		if err := m.sess.send(outbound{Type: typeInsert, Surface: "structured", ID: m.id, Node: &w.nodes[i]}); err != nil {
			return err
		}
	}

	return nil
}

type remoteWriter struct {
	nodes []editor.Node
}

func (w *remoteWriter) CreateElement(name string, attrs map[string]string) editor.Node {
	return editor.Node{Name: name, Attrs: attrs}
}

func (w *remoteWriter) InsertContent(node editor.Node) error {
	w.nodes = append(w.nodes, node)
	return nil
}
