package keyed

import (
	"fmt"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/vango-dev/pulse/pkg/pulse"
)

var listCounter atomic.Uint64

// List is an ordered collection of items with unique, non-empty identities,
// mirrored one-to-one onto a Surface. The surface order always equals the
// list order.
//
// A List is an event source: every applied mutation is broadcast as a
// Change on ChannelChange. Like the rest of the runtime it is not safe for
// concurrent use.
type List[T, N any] struct {
	surface  Surface[N]
	identity func(T) string
	render   Renderer[T, N]

	ids   []string
	items map[string]T

	events *pulse.Emitter[Change[T]]
}

// New creates an empty list. identity extracts an item's key and render
// builds the node handed to surface. Options name the list and set the
// reporter used for change subscribers.
func New[T, N any](surface Surface[N], identity func(T) string, render Renderer[T, N], opts ...pulse.Option) *List[T, N] {
	name := fmt.Sprintf("list-%d", listCounter.Add(1))
	return &List[T, N]{
		surface:  surface,
		identity: identity,
		render:   render,
		items:    make(map[string]T),
		events:   pulse.NewEmitter[Change[T]](name, opts...),
	}
}

// Name returns the list's name.
func (l *List[T, N]) Name() string {
	return l.events.Name()
}

// Append adds item at the end.
func (l *List[T, N]) Append(item T) error {
	id := l.identity(item)
	if err := l.checkNew(OpAppend, id); err != nil {
		return err
	}
	node, err := l.renderItem(OpAppend, id, item)
	if err != nil {
		return err
	}
	if err := l.surface.AppendChild(id, node); err != nil {
		return identityError(OpAppend, id, fmt.Errorf("%w: %w", ErrSurface, err))
	}
	l.ids = append(l.ids, id)
	l.items[id] = item
	l.emit(Change[T]{Op: OpAppend, ID: id, Item: item})
	return nil
}

// AppendAll appends items in order and stops at the first failure. Items
// appended before the failure stay.
func (l *List[T, N]) AppendAll(items ...T) error {
	for _, item := range items {
		if err := l.Append(item); err != nil {
			return err
		}
	}
	return nil
}

// InsertBefore adds item directly in front of the entry identified by
// refID. The relative order of every other entry is kept.
func (l *List[T, N]) InsertBefore(item T, refID string) error {
	id := l.identity(item)
	if err := l.checkNew(OpInsertBefore, id); err != nil {
		return err
	}
	at := slices.Index(l.ids, refID)
	if at < 0 {
		return identityError(OpInsertBefore, refID, ErrUnknownIdentity)
	}
	node, err := l.renderItem(OpInsertBefore, id, item)
	if err != nil {
		return err
	}
	if err := l.surface.InsertBefore(id, node, refID); err != nil {
		return identityError(OpInsertBefore, id, fmt.Errorf("%w: %w", ErrSurface, err))
	}
	l.ids = slices.Insert(l.ids, at, id)
	l.items[id] = item
	l.emit(Change[T]{Op: OpInsertBefore, ID: id, Item: item, RefID: refID})
	return nil
}

// RemoveChild removes the entry identified by id.
func (l *List[T, N]) RemoveChild(id string) error {
	at := slices.Index(l.ids, id)
	if at < 0 {
		return identityError(OpRemove, id, ErrUnknownIdentity)
	}
	if err := l.surface.RemoveChild(id); err != nil {
		return identityError(OpRemove, id, fmt.Errorf("%w: %w", ErrSurface, err))
	}
	item := l.items[id]
	l.ids = slices.Delete(l.ids, at, at+1)
	delete(l.items, id)
	l.emit(Change[T]{Op: OpRemove, ID: id, Item: item})
	return nil
}

// ReplaceChild swaps the entry identified by oldID for item, in place. The
// new identity may equal oldID; it must not belong to any other entry.
func (l *List[T, N]) ReplaceChild(item T, oldID string) error {
	at := slices.Index(l.ids, oldID)
	if at < 0 {
		return identityError(OpReplace, oldID, ErrUnknownIdentity)
	}
	id := l.identity(item)
	if id == "" {
		return identityError(OpReplace, id, ErrInvalidIdentity)
	}
	if _, exists := l.items[id]; exists && id != oldID {
		return identityError(OpReplace, id, ErrDuplicateIdentity)
	}
	node, err := l.renderItem(OpReplace, id, item)
	if err != nil {
		return err
	}
	if err := l.surface.ReplaceChild(id, node, oldID); err != nil {
		return identityError(OpReplace, id, fmt.Errorf("%w: %w", ErrSurface, err))
	}
	l.ids[at] = id
	delete(l.items, oldID)
	l.items[id] = item
	l.emit(Change[T]{Op: OpReplace, ID: id, Item: item, OldID: oldID})
	return nil
}

// EnsureChild replaces the entry with item's identity, or appends item when
// there is none.
func (l *List[T, N]) EnsureChild(item T) error {
	id := l.identity(item)
	if _, exists := l.items[id]; exists {
		return l.ReplaceChild(item, id)
	}
	return l.Append(item)
}

// Get returns the item identified by id.
func (l *List[T, N]) Get(id string) (T, bool) {
	item, ok := l.items[id]
	return item, ok
}

// Contains reports whether id is in the list.
func (l *List[T, N]) Contains(id string) bool {
	_, ok := l.items[id]
	return ok
}

// Index returns the position of id, or -1.
func (l *List[T, N]) Index(id string) int {
	return slices.Index(l.ids, id)
}

// Len returns the number of entries.
func (l *List[T, N]) Len() int {
	return len(l.ids)
}

// First returns the first item.
func (l *List[T, N]) First() (T, bool) {
	if len(l.ids) == 0 {
		var zero T
		return zero, false
	}
	return l.items[l.ids[0]], true
}

// Last returns the last item.
func (l *List[T, N]) Last() (T, bool) {
	if len(l.ids) == 0 {
		var zero T
		return zero, false
	}
	return l.items[l.ids[len(l.ids)-1]], true
}

// IDs returns the identities in list order.
func (l *List[T, N]) IDs() []string {
	return slices.Clone(l.ids)
}

// Items returns the items in list order.
func (l *List[T, N]) Items() []T {
	out := make([]T, 0, len(l.ids))
	for _, id := range l.ids {
		out = append(out, l.items[id])
	}
	return out
}

// All iterates identities and items in list order. The iteration works on
// the order at the time All was called.
func (l *List[T, N]) All() iter.Seq2[string, T] {
	ids := slices.Clone(l.ids)
	return func(yield func(string, T) bool) {
		for _, id := range ids {
			item, ok := l.items[id]
			if !ok {
				continue
			}
			if !yield(id, item) {
				return
			}
		}
	}
}

// Subscribe registers fn for every applied mutation.
func (l *List[T, N]) Subscribe(fn func(Change[T])) *pulse.Subscription {
	return l.events.On(ChannelChange, fn)
}

// On makes the list a pulse.EventSource, so it can feed an Aggregator.
func (l *List[T, N]) On(channel string, fn func(Change[T])) *pulse.Subscription {
	return l.events.On(channel, fn)
}

// Dispose drops every change subscriber. The entries and the surface are
// left as they are.
func (l *List[T, N]) Dispose() {
	l.events.Dispose()
}

func (l *List[T, N]) checkNew(op Op, id string) error {
	if id == "" {
		return identityError(op, id, ErrInvalidIdentity)
	}
	if _, exists := l.items[id]; exists {
		return identityError(op, id, ErrDuplicateIdentity)
	}
	return nil
}

func (l *List[T, N]) renderItem(op Op, id string, item T) (node N, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = identityError(op, id, fmt.Errorf("%w: panic: %v", ErrRender, rec))
		}
	}()
	node, err = l.render(item)
	if err != nil {
		return node, identityError(op, id, fmt.Errorf("%w: %w", ErrRender, err))
	}
	return node, nil
}

func (l *List[T, N]) emit(c Change[T]) {
	l.events.Emit(ChannelChange, c)
}
