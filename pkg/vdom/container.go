package vdom

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vango-dev/pulse/pkg/pulse"
)

// MarkerAttr is the attribute carrying a child's identity.
const MarkerAttr = "data-id"

// ChannelPatch is the channel a Container publishes patches on.
const ChannelPatch = "patch"

var (
	ErrNodeNotFound  = errors.New("vdom: node not found")
	ErrDuplicateNode = errors.New("vdom: node already present")
	ErrNilNode       = errors.New("vdom: nil node")
)

// Container is a keyed render surface over the children of one element.
// It satisfies keyed.Surface[*VNode].
type Container struct {
	root   *VNode
	nodes  map[string]*VNode
	events *pulse.Emitter[Patch]
}

// NewContainer wraps root. Existing children that carry a marker are
// adopted; a nil root becomes an empty div.
func NewContainer(root *VNode, opts ...pulse.Option) *Container {
	if root == nil {
		root = Div()
	}
	if root.Props == nil {
		root.Props = make(Props)
	}
	c := &Container{
		root:   root,
		nodes:  make(map[string]*VNode),
		events: pulse.NewEmitter[Patch](rootName(root), opts...),
	}
	for _, child := range root.Children {
		if id, ok := child.Attr(MarkerAttr); ok && id != "" {
			c.nodes[id] = child
		}
	}
	return c
}

func rootName(root *VNode) string {
	if id, ok := root.Attr("id"); ok && id != "" {
		return id
	}
	return root.Tag
}

// Root returns the container element.
func (c *Container) Root() *VNode {
	return c.root
}

// Name returns the container's name: the root id, or its tag.
func (c *Container) Name() string {
	return c.events.Name()
}

// AppendChild adds node as the last child.
func (c *Container) AppendChild(id string, node *VNode) error {
	n, err := c.adopt(id, node)
	if err != nil {
		return err
	}
	c.root.Children = append(c.root.Children, n)
	c.nodes[id] = n
	c.emit(Patch{Op: PatchInsertNode, ID: id, Index: len(c.root.Children) - 1, Node: n})
	return nil
}

// InsertBefore adds node directly in front of the child marked refID.
func (c *Container) InsertBefore(id string, node *VNode, refID string) error {
	at := c.indexOf(refID)
	if at < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, refID)
	}
	n, err := c.adopt(id, node)
	if err != nil {
		return err
	}
	c.root.Children = slices.Insert(c.root.Children, at, n)
	c.nodes[id] = n
	c.emit(Patch{Op: PatchInsertNode, ID: id, RefID: refID, Index: at, Node: n})
	return nil
}

// RemoveChild detaches the child marked id.
func (c *Container) RemoveChild(id string) error {
	at := c.indexOf(id)
	if at < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	c.root.Children = slices.Delete(c.root.Children, at, at+1)
	delete(c.nodes, id)
	c.emit(Patch{Op: PatchRemoveNode, ID: id, Index: at})
	return nil
}

// ReplaceChild swaps the child marked oldID for node, marked id.
func (c *Container) ReplaceChild(id string, node *VNode, oldID string) error {
	at := c.indexOf(oldID)
	if at < 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, oldID)
	}
	if id != oldID {
		if _, exists := c.nodes[id]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
		}
	}
	n, err := c.mark(id, node)
	if err != nil {
		return err
	}
	c.root.Children[at] = n
	delete(c.nodes, oldID)
	c.nodes[id] = n
	c.emit(Patch{Op: PatchReplaceNode, ID: id, OldID: oldID, Index: at, Node: n})
	return nil
}

// Child returns the child marked id.
func (c *Container) Child(id string) (*VNode, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// IDs returns child markers in document order.
func (c *Container) IDs() []string {
	out := make([]string, 0, len(c.root.Children))
	for _, child := range c.root.Children {
		if id, ok := child.Attr(MarkerAttr); ok {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of children.
func (c *Container) Len() int {
	return len(c.root.Children)
}

// OnPatch registers fn for every applied patch. Patches fire from inside
// the surface call, before a keyed.List driving the container has stored
// the entry, so fn must not read that list. Subscribe to the list's
// changes for a view of both.
func (c *Container) OnPatch(fn func(Patch)) *pulse.Subscription {
	return c.events.On(ChannelPatch, fn)
}

// Dispose drops every patch subscriber.
func (c *Container) Dispose() {
	c.events.Dispose()
}

func (c *Container) adopt(id string, node *VNode) (*VNode, error) {
	if _, exists := c.nodes[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	return c.mark(id, node)
}

// mark stamps the identity on node. Text, raw and fragment nodes have no
// attributes, so they are wrapped in a span first.
func (c *Container) mark(id string, node *VNode) (*VNode, error) {
	if node == nil {
		return nil, ErrNilNode
	}
	if node.Kind != KindElement {
		node = Span(node)
	}
	if node.Props == nil {
		node.Props = make(Props)
	}
	node.Props[MarkerAttr] = id
	node.Key = id
	return node, nil
}

func (c *Container) indexOf(id string) int {
	n, ok := c.nodes[id]
	if !ok {
		return -1
	}
	return slices.Index(c.root.Children, n)
}

func (c *Container) emit(p Patch) {
	p.ParentID, _ = c.root.Attr("id")
	c.events.Emit(ChannelPatch, p)
}
