package pulse

// ChannelChange is the pseudo channel a Signal publishes on. Aggregator keys
// for signals end in ":change".
const ChannelChange = "change"

// Source is the read side of a signal: a current value that may be unset and
// a subscription that replays it.
type Source[T any] interface {
	Name() string
	Lookup() (T, bool)
	Subscribe(fn func(T)) *Subscription
}

// Signal is an observable value cell.
//
// A Signal is either set or unset. Set stores a value and notifies
// subscribers unless the value equals the stored one under the signal's
// equality policy. Subscribe replays the current value synchronously when
// the signal is set.
type Signal[T any] struct {
	opts options

	value T
	set   bool

	subs listeners[T]

	// equal decides whether a write is redundant. nil means defaultEquals.
	equal func(a, b T) bool

	// owned are released together with the signal.
	owned    []Disposable
	disposed bool
}

// NewSignal creates a signal holding initial.
func NewSignal[T any](initial T, opts ...Option) *Signal[T] {
	s := NewEmptySignal[T](opts...)
	s.value = initial
	s.set = true
	return s
}

// NewEmptySignal creates an unset signal. It replays nothing until the first
// Set.
func NewEmptySignal[T any](opts ...Option) *Signal[T] {
	return &Signal[T]{opts: buildOptions("", "signal", opts)}
}

// Name returns the signal's name.
func (s *Signal[T]) Name() string {
	return s.opts.name
}

// Get returns the current value, or the zero value while unset.
func (s *Signal[T]) Get() T {
	return s.value
}

// Lookup returns the current value and whether the signal is set.
func (s *Signal[T]) Lookup() (T, bool) {
	return s.value, s.set
}

// IsSet reports whether the signal holds a value.
func (s *Signal[T]) IsSet() bool {
	return s.set
}

// Set stores v and notifies subscribers, unless the signal is already set to
// an equal value.
func (s *Signal[T]) Set(v T) {
	if s.set && s.equals(s.value, v) {
		return
	}
	s.value = v
	s.set = true
	s.subs.dispatch(s.opts.reporter, s.opts.name, v)
}

// Update sets the signal to fn(current). The result is compared like any
// other write.
func (s *Signal[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

// Notify re-delivers the current value to every subscriber, bypassing the
// equality check. It does nothing while the signal is unset.
func (s *Signal[T]) Notify() {
	if !s.set {
		return
	}
	s.subs.dispatch(s.opts.reporter, s.opts.name, s.value)
}

// Subscribe calls fn with the current value (when set), then registers fn
// for every later change. Each call yields an independent Subscription, even
// for the same fn.
func (s *Signal[T]) Subscribe(fn func(T)) *Subscription {
	if fn == nil || s.disposed {
		return closedSubscription()
	}
	if s.set {
		v := s.value
		guard(s.opts.reporter, s.opts.name, func() { fn(v) })
	}
	l := s.subs.add(fn)
	return newSubscription(func() { s.subs.remove(l) })
}

// SubscriberCount returns the number of live subscriptions.
func (s *Signal[T]) SubscriberCount() int {
	return s.subs.len()
}

// WithEquals replaces the equality policy and returns the signal.
func (s *Signal[T]) WithEquals(fn func(a, b T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// Collect hands disposables to the signal; they are released by Dispose.
// On a disposed signal they are released immediately.
func (s *Signal[T]) Collect(ds ...Disposable) {
	for _, d := range ds {
		if d == nil {
			continue
		}
		if s.disposed {
			guard(s.opts.reporter, s.opts.name, d.Dispose)
			continue
		}
		s.owned = append(s.owned, d)
	}
}

// Dispose drops every subscriber and releases collected disposables in the
// order they were collected. The value is kept. Later subscriptions are
// refused.
func (s *Signal[T]) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.subs.clear()
	owned := s.owned
	s.owned = nil
	for _, d := range owned {
		guard(s.opts.reporter, s.opts.name, d.Dispose)
	}
}

// IsDisposed reports whether Dispose was called.
func (s *Signal[T]) IsDisposed() bool {
	return s.disposed
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}
