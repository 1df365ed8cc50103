package pulse

import "fmt"

// Map derives a signal holding fn(v) for every value v of src, including the
// value replayed when Map subscribes. The derived signal owns its
// subscription to src.
func Map[T, U any](src Source[T], fn func(T) U, opts ...Option) *Signal[U] {
	all := append([]Option{WithName(src.Name() + "/map")}, opts...)
	out := NewEmptySignal[U](all...)
	out.Collect(src.Subscribe(func(v T) {
		out.Set(fn(v))
	}))
	return out
}

// CombineLatest derives a signal holding the current values of every source.
// Nothing is published until all sources are set and none holds nil; from
// then on each source update publishes exactly one fresh slice.
func CombineLatest[T any](srcs ...Source[T]) *Signal[[]T] {
	out := NewEmptySignal[[]T](WithName(fmt.Sprintf("combine-%d", nextID())))
	wiring := true
	update := func(T) {
		if wiring {
			return
		}
		values := make([]T, 0, len(srcs))
		for _, src := range srcs {
			v, ok := src.Lookup()
			if !ok || isNil(v) {
				return
			}
			values = append(values, v)
		}
		out.Set(values)
	}
	for _, src := range srcs {
		out.Collect(src.Subscribe(update))
	}
	wiring = false
	var zero T
	update(zero)
	return out
}

// Pair holds the latest values of two sources.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Combine2 is CombineLatest for two sources of different types.
func Combine2[A, B any](a Source[A], b Source[B]) *Signal[Pair[A, B]] {
	out := NewEmptySignal[Pair[A, B]](WithName(a.Name() + "+" + b.Name()))
	// Each source update publishes, like CombineLatest's fresh slices.
	out.WithEquals(EqualNever[Pair[A, B]])
	wiring := true
	update := func() {
		if wiring {
			return
		}
		av, ok := a.Lookup()
		if !ok || isNil(av) {
			return
		}
		bv, ok := b.Lookup()
		if !ok || isNil(bv) {
			return
		}
		out.Set(Pair[A, B]{First: av, Second: bv})
	}
	out.Collect(
		a.Subscribe(func(A) { update() }),
		b.Subscribe(func(B) { update() }),
	)
	wiring = false
	update()
	return out
}

// Bind copies every value of src into dst.
func Bind[T any](src Source[T], dst *Signal[T]) *Subscription {
	return src.Subscribe(dst.Set)
}

// FromEmitter derives a signal from one channel of an event source. The
// signal stays unset until the first emission.
func FromEmitter[T any](src EventSource[T], channel string) *Signal[T] {
	out := NewEmptySignal[T](WithName(src.Name() + ":" + channel))
	out.WithEquals(EqualNever[T])
	out.Collect(src.On(channel, out.Set))
	return out
}
