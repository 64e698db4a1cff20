package hostbridge

import (
	"github.com/tonimelisma/paste-proxy/internal/clipboard"
	"github.com/tonimelisma/paste-proxy/internal/editor"
)

// protocolVersion is sent in the welcome message.
const protocolVersion = 1

// Message types.
const (
	typeHello     = "hello"
	typeWelcome   = "welcome"
	typeMounted   = "mounted"
	typeUnmounted = "unmounted"
	typePaste     = "paste"
	typePasteAck  = "paste_ack"
	typeInsert    = "insert"
	typeSetCursor = "set_cursor"
	typeSuppress  = "suppress_upload_adapter"
	typeNotice    = "notice"
	typeError     = "error"
)

// position is a plain-text cursor on the wire.
type position struct {
	Line int `json:"line"`
	Ch   int `json:"ch"`
}

// item is one clipboard entry. Data is base64 in JSON.
type item struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// inbound is every host → server message. Fields are used per Type.
type inbound struct {
	Type string `json:"type"`

	// hello
	Client    string `json:"client,omitempty"`
	Version   int    `json:"version,omitempty"`
	Lifecycle *bool  `json:"lifecycle,omitempty"` // nil means the host emits lifecycle events

	// mounted, unmounted, paste
	Surface string `json:"surface,omitempty"`
	ID      string `json:"id,omitempty"`

	// paste
	Cursor *position `json:"cursor,omitempty"`
	Items  []item    `json:"items,omitempty"`
}

// outbound is every server → host message.
type outbound struct {
	Type    string       `json:"type"`
	Version int          `json:"version,omitempty"`
	Surface string       `json:"surface,omitempty"`
	ID      string       `json:"id,omitempty"`
	Markup  string       `json:"markup,omitempty"`
	Node    *editor.Node `json:"node,omitempty"`
	Cursor  *position    `json:"cursor,omitempty"`
	Handled *bool        `json:"handled,omitempty"`
	Message string       `json:"message,omitempty"`
}

func (m inbound) pasteEvent() clipboard.PasteEvent {
	ev := clipboard.PasteEvent{Source: "bridge", Items: make([]clipboard.Item, 0, len(m.Items))}
	for _, it := range m.Items {
		ev.Items = append(ev.Items, clipboard.Item{Type: it.Type, Name: it.Name, Data: it.Data})
	}

	return ev
}
