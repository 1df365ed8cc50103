package pulse

// Scope is a disposal boundary. Members are released exactly once, in the
// order they were added, when the scope is disposed.
//
// Scopes nest: Scope.Scope mints a child that is disposed with its parent
// but may also be disposed on its own, which detaches it from the parent.
type Scope struct {
	opts     options
	parent   *Scope
	members  []Disposable
	disposed bool
}

// NewScope creates a root scope.
func NewScope(opts ...Option) *Scope {
	return &Scope{opts: buildOptions("", "scope", opts)}
}

// Name returns the scope's name.
func (s *Scope) Name() string {
	return s.opts.name
}

// Add stores disposables. A disposed scope releases them on the spot rather
// than dropping them.
func (s *Scope) Add(ds ...Disposable) {
	for _, d := range ds {
		if d == nil {
			continue
		}
		if s.disposed {
			s.release(d)
			continue
		}
		s.members = append(s.members, d)
	}
}

// AddFunc stores a teardown function.
func (s *Scope) AddFunc(fn func()) {
	if fn == nil {
		return
	}
	s.Add(DisposeFunc(fn))
}

// Scope mints a child scope owned by s.
func (s *Scope) Scope(opts ...Option) *Scope {
	all := append([]Option{WithReporter(s.opts.reporter)}, opts...)
	child := &Scope{
		opts:   buildOptions("", "scope", all),
		parent: s,
	}
	s.Add(child)
	return child
}

// Dispose releases every member in insertion order and clears the member
// list. A panicking member is reported and the rest still run. Calling
// Dispose again does nothing.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	if s.parent != nil {
		s.parent.detach(s)
	}
	members := s.members
	s.members = nil
	for _, d := range members {
		s.release(d)
	}
}

// IsDisposed reports whether Dispose was called.
func (s *Scope) IsDisposed() bool {
	return s.disposed
}

// Len returns the number of members held.
func (s *Scope) Len() int {
	return len(s.members)
}

func (s *Scope) release(d Disposable) {
	guard(s.opts.reporter, s.opts.name, d.Dispose)
}

// detach forgets a child that disposed itself.
func (s *Scope) detach(child *Scope) {
	if s.disposed {
		return
	}
	for i, d := range s.members {
		if c, ok := d.(*Scope); ok && c == child {
			s.members = append(s.members[:i:i], s.members[i+1:]...)
			return
		}
	}
}
