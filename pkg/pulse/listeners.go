package pulse

// listener is one registration in a listeners list.
type listener[T any] struct {
	fn     func(T)
	active bool
}

// listeners is an ordered registration list that tolerates mutation while it
// is being dispatched. Removal never writes into the current backing array,
// so a dispatch loop holding the old slice header keeps a stable view; the
// active flag makes it skip entries removed mid-dispatch.
type listeners[T any] struct {
	items []*listener[T]
}

func (ls *listeners[T]) add(fn func(T)) *listener[T] {
	l := &listener[T]{fn: fn, active: true}
	ls.items = append(ls.items, l)
	return l
}

func (ls *listeners[T]) remove(l *listener[T]) {
	if !l.active {
		return
	}
	l.active = false
	for i, item := range ls.items {
		if item == l {
			ls.items = append(ls.items[:i:i], ls.items[i+1:]...)
			return
		}
	}
}

func (ls *listeners[T]) len() int {
	return len(ls.items)
}

// clear deactivates every registration.
func (ls *listeners[T]) clear() {
	for _, l := range ls.items {
		l.active = false
	}
	ls.items = nil
}

// dispatch calls every registration present when dispatch started, in
// insertion order, isolating panics.
func (ls *listeners[T]) dispatch(r Reporter, source string, v T) {
	snapshot := ls.items
	for _, l := range snapshot {
		if !l.active {
			continue
		}
		fn := l.fn
		guard(r, source, func() { fn(v) })
	}
}
