package live

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vango-dev/pulse/pkg/render"
	"github.com/vango-dev/pulse/pkg/vdom"
)

// Wire operations.
const (
	OpReset   = "reset"
	OpInsert  = "insert"
	OpRemove  = "remove"
	OpReplace = "replace"
)

// Message is the JSON form of a patch sent to clients.
type Message struct {
	Op     string `json:"op"`
	Parent string `json:"parent,omitempty"`
	ID     string `json:"id,omitempty"`
	Ref    string `json:"ref,omitempty"`
	Old    string `json:"old,omitempty"`
	Index  int    `json:"index"`
	HTML   string `json:"html,omitempty"`
}

// Encode converts a container patch into its wire message.
func Encode(p vdom.Patch) ([]byte, error) {
	m := Message{
		Parent: p.ParentID,
		ID:     p.ID,
		Ref:    p.RefID,
		Old:    p.OldID,
		Index:  p.Index,
	}
	switch p.Op {
	case vdom.PatchInsertNode:
		m.Op = OpInsert
	case vdom.PatchRemoveNode:
		m.Op = OpRemove
	case vdom.PatchReplaceNode:
		m.Op = OpReplace
	default:
		return nil, fmt.Errorf("live: unsupported patch %s", p.Op)
	}
	if p.Node != nil {
		html, err := render.HTML(p.Node)
		if err != nil {
			return nil, fmt.Errorf("live: render %s: %w", p.ID, err)
		}
		m.HTML = html
	}
	return marshal(m)
}

func encodeReset(html []byte) ([]byte, error) {
	return marshal(Message{Op: OpReset, HTML: string(html)})
}

// marshal encodes m without escaping markup.
func marshal(m Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
