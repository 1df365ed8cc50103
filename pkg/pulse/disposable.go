package pulse

// Disposable is anything holding a resource that must be released.
// Dispose must be safe to call more than once.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a teardown function to Disposable.
// Unlike Subscription it does not guard against repeated calls.
type DisposeFunc func()

// Dispose calls f.
func (f DisposeFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Subscription is the handle returned by every subscribe call.
// Dispose removes exactly the registration that created it and is
// idempotent.
type Subscription struct {
	release func()
	done    bool
}

func newSubscription(release func()) *Subscription {
	return &Subscription{release: release}
}

// closedSubscription returns a handle that is already released. It is
// handed out when there is nothing to register.
func closedSubscription() *Subscription {
	return &Subscription{done: true}
}

// Dispose releases the registration. Calling it again does nothing.
func (s *Subscription) Dispose() {
	if s == nil || s.done {
		return
	}
	s.done = true
	release := s.release
	s.release = nil
	if release != nil {
		release()
	}
}

// Active reports whether the registration is still live.
func (s *Subscription) Active() bool {
	return s != nil && !s.done
}
