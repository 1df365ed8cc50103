package keyed

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/google/uuid"

	"github.com/vango-dev/pulse/pkg/vdom"
)

type item struct {
	ID   string
	Text string
}

func itemID(it item) string { return it.ID }

// fakeSurface keeps the node order it was told about and can be made to
// fail.
type fakeSurface struct {
	order []string
	nodes map[string]string
	calls []string
	fail  error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{nodes: make(map[string]string)}
}

func (s *fakeSurface) AppendChild(id string, node string) error {
	s.calls = append(s.calls, "append "+id)
	if s.fail != nil {
		return s.fail
	}
	s.order = append(s.order, id)
	s.nodes[id] = node
	return nil
}

func (s *fakeSurface) InsertBefore(id string, node string, refID string) error {
	s.calls = append(s.calls, "insert "+id+" before "+refID)
	if s.fail != nil {
		return s.fail
	}
	at := slices.Index(s.order, refID)
	s.order = slices.Insert(s.order, at, id)
	s.nodes[id] = node
	return nil
}

func (s *fakeSurface) RemoveChild(id string) error {
	s.calls = append(s.calls, "remove "+id)
	if s.fail != nil {
		return s.fail
	}
	at := slices.Index(s.order, id)
	s.order = slices.Delete(s.order, at, at+1)
	delete(s.nodes, id)
	return nil
}

func (s *fakeSurface) ReplaceChild(id string, node string, oldID string) error {
	s.calls = append(s.calls, "replace "+oldID+" with "+id)
	if s.fail != nil {
		return s.fail
	}
	at := slices.Index(s.order, oldID)
	s.order[at] = id
	delete(s.nodes, oldID)
	s.nodes[id] = node
	return nil
}

func renderText(it item) (string, error) {
	return "<li>" + it.Text + "</li>", nil
}

func newTestList() (*List[item, string], *fakeSurface) {
	surface := newFakeSurface()
	return New[item, string](surface, itemID, renderText), surface
}

func TestListScenario(t *testing.T) {
	list, surface := newTestList()

	if err := list.Append(item{ID: "a"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := list.InsertBefore(item{ID: "b"}, "a"); err != nil {
		t.Fatalf("InsertBefore: %v", err)
	}
	if !reflect.DeepEqual(list.IDs(), []string{"b", "a"}) {
		t.Errorf("expected [b a], got %v", list.IDs())
	}

	if err := list.RemoveChild("b"); err != nil {
		t.Fatalf("RemoveChild: %v", err)
	}
	if !reflect.DeepEqual(list.IDs(), []string{"a"}) {
		t.Errorf("expected [a], got %v", list.IDs())
	}

	err := list.RemoveChild("b")
	if !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("expected ErrUnknownIdentity, got %v", err)
	}
	if !reflect.DeepEqual(surface.order, list.IDs()) {
		t.Errorf("surface order %v differs from list order %v", surface.order, list.IDs())
	}
}

func TestListInsertBeforeKeepsOrder(t *testing.T) {
	list, surface := newTestList()
	list.AppendAll(item{ID: "a"}, item{ID: "b"}, item{ID: "c"}, item{ID: "d"})

	if err := list.InsertBefore(item{ID: "x"}, "c"); err != nil {
		t.Fatalf("InsertBefore: %v", err)
	}
	if err := list.InsertBefore(item{ID: "y"}, "a"); err != nil {
		t.Fatalf("InsertBefore: %v", err)
	}

	want := []string{"y", "a", "b", "x", "c", "d"}
	if !reflect.DeepEqual(list.IDs(), want) {
		t.Errorf("expected %v, got %v", want, list.IDs())
	}
	if !reflect.DeepEqual(surface.order, want) {
		t.Errorf("surface should match: expected %v, got %v", want, surface.order)
	}
}

func TestListValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *List[item, string]) error
		wantErr error
	}{
		{
			name:    "append empty id",
			mutate:  func(l *List[item, string]) error { return l.Append(item{}) },
			wantErr: ErrInvalidIdentity,
		},
		{
			name:    "append duplicate",
			mutate:  func(l *List[item, string]) error { return l.Append(item{ID: "a"}) },
			wantErr: ErrDuplicateIdentity,
		},
		{
			name:    "insert empty id",
			mutate:  func(l *List[item, string]) error { return l.InsertBefore(item{}, "a") },
			wantErr: ErrInvalidIdentity,
		},
		{
			name:    "insert duplicate",
			mutate:  func(l *List[item, string]) error { return l.InsertBefore(item{ID: "b"}, "a") },
			wantErr: ErrDuplicateIdentity,
		},
		{
			name:    "insert before unknown",
			mutate:  func(l *List[item, string]) error { return l.InsertBefore(item{ID: "z"}, "missing") },
			wantErr: ErrUnknownIdentity,
		},
		{
			name:    "remove unknown",
			mutate:  func(l *List[item, string]) error { return l.RemoveChild("missing") },
			wantErr: ErrUnknownIdentity,
		},
		{
			name:    "replace unknown",
			mutate:  func(l *List[item, string]) error { return l.ReplaceChild(item{ID: "z"}, "missing") },
			wantErr: ErrUnknownIdentity,
		},
		{
			name:    "replace with identity of another entry",
			mutate:  func(l *List[item, string]) error { return l.ReplaceChild(item{ID: "b"}, "a") },
			wantErr: ErrDuplicateIdentity,
		},
		{
			name:    "replace with empty id",
			mutate:  func(l *List[item, string]) error { return l.ReplaceChild(item{}, "a") },
			wantErr: ErrInvalidIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, surface := newTestList()
			list.AppendAll(item{ID: "a"}, item{ID: "b"})
			surface.calls = nil

			changes := 0
			list.Subscribe(func(Change[item]) { changes++ })

			err := tt.mutate(list)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var idErr *IdentityError
			if !errors.As(err, &idErr) {
				t.Errorf("expected *IdentityError, got %T", err)
			}
			if len(surface.calls) != 0 {
				t.Errorf("rejected mutation reached the surface: %v", surface.calls)
			}
			if changes != 0 {
				t.Errorf("rejected mutation broadcast %d changes", changes)
			}
			if !reflect.DeepEqual(list.IDs(), []string{"a", "b"}) {
				t.Errorf("list changed: %v", list.IDs())
			}
		})
	}
}

func TestListRenderFailureIsAtomic(t *testing.T) {
	surface := newFakeSurface()
	renderErr := errors.New("template broken")
	list := New[item, string](surface, itemID, func(it item) (string, error) {
		switch it.Text {
		case "bad":
			return "", renderErr
		case "panic":
			panic("renderer exploded")
		}
		return it.Text, nil
	})
	list.Append(item{ID: "a", Text: "ok"})

	err := list.Append(item{ID: "b", Text: "bad"})
	if !errors.Is(err, ErrRender) || !errors.Is(err, renderErr) {
		t.Errorf("expected wrapped render error, got %v", err)
	}

	err = list.ReplaceChild(item{ID: "a", Text: "panic"}, "a")
	if !errors.Is(err, ErrRender) {
		t.Errorf("expected ErrRender from panic, got %v", err)
	}

	if list.Len() != 1 || list.Contains("b") {
		t.Errorf("failed render should not change the list, got %v", list.IDs())
	}
	if got, _ := list.Get("a"); got.Text != "ok" {
		t.Errorf("failed replace should keep the old item, got %+v", got)
	}
	if !reflect.DeepEqual(surface.order, []string{"a"}) {
		t.Errorf("surface changed: %v", surface.order)
	}
}

func TestListSurfaceFailureIsAtomic(t *testing.T) {
	list, surface := newTestList()
	list.Append(item{ID: "a"})

	surface.fail = errors.New("detached")
	changes := 0
	list.Subscribe(func(Change[item]) { changes++ })

	for _, err := range []error{
		list.Append(item{ID: "b"}),
		list.InsertBefore(item{ID: "b"}, "a"),
		list.RemoveChild("a"),
		list.ReplaceChild(item{ID: "c"}, "a"),
	} {
		if !errors.Is(err, ErrSurface) || !errors.Is(err, surface.fail) {
			t.Errorf("expected wrapped surface error, got %v", err)
		}
	}

	if !reflect.DeepEqual(list.IDs(), []string{"a"}) {
		t.Errorf("list changed after surface failures: %v", list.IDs())
	}
	if changes != 0 {
		t.Errorf("failed mutations broadcast %d changes", changes)
	}
}

func TestListReplaceChild(t *testing.T) {
	list, surface := newTestList()
	list.AppendAll(item{ID: "a", Text: "1"}, item{ID: "b", Text: "2"}, item{ID: "c", Text: "3"})

	var got []Change[item]
	list.Subscribe(func(c Change[item]) { got = append(got, c) })

	if err := list.ReplaceChild(item{ID: "z", Text: "new"}, "b"); err != nil {
		t.Fatalf("ReplaceChild: %v", err)
	}

	if !reflect.DeepEqual(list.IDs(), []string{"a", "z", "c"}) {
		t.Errorf("expected [a z c], got %v", list.IDs())
	}
	if list.Contains("b") {
		t.Error("old identity should be gone")
	}
	if surface.nodes["z"] != "<li>new</li>" {
		t.Errorf("surface should hold the new node, got %q", surface.nodes["z"])
	}
	want := Change[item]{Op: OpReplace, ID: "z", Item: item{ID: "z", Text: "new"}, OldID: "b"}
	if len(got) != 1 || got[0] != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestListEnsureChild(t *testing.T) {
	list, surface := newTestList()

	if err := list.EnsureChild(item{ID: "a", Text: "first"}); err != nil {
		t.Fatalf("EnsureChild insert: %v", err)
	}
	list.Append(item{ID: "b"})
	if err := list.EnsureChild(item{ID: "a", Text: "second"}); err != nil {
		t.Fatalf("EnsureChild update: %v", err)
	}

	if got, _ := list.Get("a"); got.Text != "second" {
		t.Errorf("expected updated item, got %+v", got)
	}
	if !reflect.DeepEqual(list.IDs(), []string{"a", "b"}) {
		t.Errorf("update should keep the position, got %v", list.IDs())
	}
	if surface.calls[len(surface.calls)-1] != "replace a with a" {
		t.Errorf("expected in-place replace, got %v", surface.calls)
	}
}

func TestListChanges(t *testing.T) {
	list, _ := newTestList()

	var ops []string
	list.Subscribe(func(c Change[item]) { ops = append(ops, c.Op.String()+":"+c.ID+c.RefID) })

	list.Append(item{ID: "a"})
	list.InsertBefore(item{ID: "b"}, "a")
	list.RemoveChild("a")

	want := []string{"append:a", "insertBefore:ba", "remove:a"}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("expected %v, got %v", want, ops)
	}
}

func TestListChangeObservesAppliedState(t *testing.T) {
	list, _ := newTestList()
	var seen int
	list.Subscribe(func(c Change[item]) {
		if c.Op == OpAppend {
			seen = list.Len()
		}
	})
	list.Append(item{ID: "a"})
	if seen != 1 {
		t.Errorf("subscribers should run after the entry is stored, saw len %d", seen)
	}
}

func TestListCommitsAfterSurface(t *testing.T) {
	container := vdom.NewContainer(vdom.Ul())
	list := New(container, itemID, func(it item) (*vdom.VNode, error) {
		return vdom.Li(vdom.Text(it.Text)), nil
	})

	var atPatch, atChange []bool
	container.OnPatch(func(p vdom.Patch) {
		atPatch = append(atPatch, list.Contains(p.ID))
	})
	list.Subscribe(func(c Change[item]) {
		atChange = append(atChange, list.Contains(c.ID) && container.Len() == list.Len())
	})

	if err := list.Append(item{ID: "a", Text: "one"}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(atPatch, []bool{false}) {
		t.Errorf("patch listeners ran after commit: %v", atPatch)
	}
	if !reflect.DeepEqual(atChange, []bool{true}) {
		t.Errorf("change listeners should see list and surface agree: %v", atChange)
	}
}

func TestListReads(t *testing.T) {
	list, _ := newTestList()

	if _, ok := list.First(); ok {
		t.Error("empty list has no first item")
	}
	if _, ok := list.Last(); ok {
		t.Error("empty list has no last item")
	}

	list.AppendAll(item{ID: "a", Text: "1"}, item{ID: "b", Text: "2"})

	if first, _ := list.First(); first.ID != "a" {
		t.Errorf("expected first a, got %+v", first)
	}
	if last, _ := list.Last(); last.ID != "b" {
		t.Errorf("expected last b, got %+v", last)
	}
	if list.Index("b") != 1 || list.Index("zz") != -1 {
		t.Error("unexpected Index results")
	}

	var ids []string
	for id, it := range list.All() {
		if id != it.ID {
			t.Errorf("iterator key %q does not match item %+v", id, it)
		}
		ids = append(ids, id)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", ids)
	}

	items := list.Items()
	items[0].Text = "changed"
	if got, _ := list.Get("a"); got.Text != "1" {
		t.Error("Items should return a copy")
	}
}

func TestListAllStopsEarly(t *testing.T) {
	list, _ := newTestList()
	list.AppendAll(item{ID: "a"}, item{ID: "b"}, item{ID: "c"})

	count := 0
	for range list.All() {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected to stop after 2, got %d", count)
	}
}

func TestListIdentityRenderer(t *testing.T) {
	surface := &nodeSurface{}
	list := New[string, string](surface, func(s string) string { return s }, Identity[string])
	list.Append("x")
	if !reflect.DeepEqual(surface.nodes, []string{"x"}) {
		t.Errorf("expected item used as node, got %v", surface.nodes)
	}
}

type nodeSurface struct{ nodes []string }

func (s *nodeSurface) AppendChild(_ string, node string) error {
	s.nodes = append(s.nodes, node)
	return nil
}
func (s *nodeSurface) InsertBefore(string, string, string) error { return nil }
func (s *nodeSurface) RemoveChild(string) error                  { return nil }
func (s *nodeSurface) ReplaceChild(string, string, string) error { return nil }

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Error("expected distinct ids")
	}
	parsed, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("expected a UUID, got %q: %v", a, err)
	}
	if parsed.Version() != 4 {
		t.Errorf("expected version 4, got %d", parsed.Version())
	}
}

func TestIdentityErrorMessage(t *testing.T) {
	err := identityError(OpRemove, "a", ErrUnknownIdentity)
	want := `remove "a": keyed: unknown identity`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
