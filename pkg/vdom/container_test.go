package vdom

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vango-dev/pulse/pkg/keyed"
)

var _ keyed.Surface[*VNode] = (*Container)(nil)

func TestContainerMarksChildren(t *testing.T) {
	c := NewContainer(Ul(ID("items")))

	if err := c.AppendChild("a", Li(Text("first"))); err != nil {
		t.Fatalf("AppendChild: %v", err)
	}
	if err := c.AppendChild("b", Text("bare")); err != nil {
		t.Fatalf("AppendChild: %v", err)
	}

	a, ok := c.Child("a")
	if !ok {
		t.Fatal("expected child a")
	}
	if id, _ := a.Attr(MarkerAttr); id != "a" || a.Key != "a" {
		t.Errorf("child should carry its marker, got %q / %q", id, a.Key)
	}

	b, _ := c.Child("b")
	if b.Tag != "span" || b.TextContent() != "bare" {
		t.Errorf("text node should be wrapped in a span, got %+v", b)
	}
}

func TestContainerOrdering(t *testing.T) {
	c := NewContainer(Ul())
	c.AppendChild("a", Li())
	c.AppendChild("c", Li())
	c.InsertBefore("b", Li(), "c")
	c.InsertBefore("start", Li(), "a")

	want := []string{"start", "a", "b", "c"}
	if !reflect.DeepEqual(c.IDs(), want) {
		t.Errorf("expected %v, got %v", want, c.IDs())
	}

	c.RemoveChild("b")
	c.ReplaceChild("z", Li(Text("new")), "a")

	want = []string{"start", "z", "c"}
	if !reflect.DeepEqual(c.IDs(), want) {
		t.Errorf("expected %v, got %v", want, c.IDs())
	}
	if _, ok := c.Child("a"); ok {
		t.Error("replaced marker should be gone")
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 children, got %d", c.Len())
	}
}

func TestContainerErrors(t *testing.T) {
	c := NewContainer(nil)
	c.AppendChild("a", Li())

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate append", c.AppendChild("a", Li()), ErrDuplicateNode},
		{"insert before unknown", c.InsertBefore("x", Li(), "missing"), ErrNodeNotFound},
		{"remove unknown", c.RemoveChild("missing"), ErrNodeNotFound},
		{"replace unknown", c.ReplaceChild("x", Li(), "missing"), ErrNodeNotFound},
		{"nil node", c.AppendChild("n", nil), ErrNilNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, tt.err)
			}
		})
	}

	if c.Root().Tag != "div" {
		t.Errorf("nil root should become a div, got %q", c.Root().Tag)
	}
	if !reflect.DeepEqual(c.IDs(), []string{"a"}) {
		t.Errorf("failed calls should not change children, got %v", c.IDs())
	}
}

func TestContainerPatches(t *testing.T) {
	c := NewContainer(Ul(ID("items")))

	var patches []Patch
	c.OnPatch(func(p Patch) { patches = append(patches, p) })

	c.AppendChild("a", Li())
	c.InsertBefore("b", Li(), "a")
	c.ReplaceChild("c", Li(), "b")
	c.RemoveChild("a")

	type summary struct {
		Op       PatchOp
		ID       string
		RefID    string
		OldID    string
		Index    int
		ParentID string
	}
	var got []summary
	for _, p := range patches {
		got = append(got, summary{p.Op, p.ID, p.RefID, p.OldID, p.Index, p.ParentID})
	}

	want := []summary{
		{PatchInsertNode, "a", "", "", 0, "items"},
		{PatchInsertNode, "b", "a", "", 0, "items"},
		{PatchReplaceNode, "c", "", "b", 0, "items"},
		{PatchRemoveNode, "a", "", "", 1, "items"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if patches[0].Node == nil || patches[3].Node != nil {
		t.Error("insert patches carry the node, remove patches do not")
	}
}

func TestContainerAdoptsMarkedChildren(t *testing.T) {
	root := Ul(Li(Data("id", "x")), Li(Text("unmarked")))
	c := NewContainer(root)

	if _, ok := c.Child("x"); !ok {
		t.Fatal("pre-marked child should be adopted")
	}
	if err := c.InsertBefore("w", Li(), "x"); err != nil {
		t.Fatalf("InsertBefore: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 children, got %d", c.Len())
	}
}

func TestContainerAsListSurface(t *testing.T) {
	type todo struct{ ID, Text string }

	c := NewContainer(Ul(ID("todos")))
	list := keyed.New[todo, *VNode](c,
		func(t todo) string { return t.ID },
		func(t todo) (*VNode, error) { return Li(Text(t.Text)), nil },
	)

	list.Append(todo{ID: "a", Text: "write"})
	list.InsertBefore(todo{ID: "b", Text: "plan"}, "a")
	list.EnsureChild(todo{ID: "a", Text: "write more"})

	if !reflect.DeepEqual(c.IDs(), list.IDs()) {
		t.Errorf("surface order %v differs from list order %v", c.IDs(), list.IDs())
	}
	a, _ := c.Child("a")
	if a.TextContent() != "write more" {
		t.Errorf("expected replaced node, got %q", a.TextContent())
	}

	err := list.RemoveChild("missing")
	if !errors.Is(err, keyed.ErrUnknownIdentity) {
		t.Errorf("expected ErrUnknownIdentity, got %v", err)
	}
}

func TestPatchOpString(t *testing.T) {
	if PatchReplaceNode.String() != "ReplaceNode" || PatchOp(0).String() != "Unknown" {
		t.Error("unexpected PatchOp names")
	}
}
