package pulse

// ChannelAggregated is the channel an Aggregator emits its snapshot on.
const ChannelAggregated = "aggregated"

// Snapshot is a copy of an aggregator's keyed values.
type Snapshot map[string]any

// Value returns the value stored under key, typed.
func Value[T any](s Snapshot, key string) (T, bool) {
	v, ok := s[key]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Aggregator is a join over several event sources. Each Combine call adds a
// key that starts unset. Whenever a source delivers, the aggregator stores the
// payload under its key and, if no key is unset, emits a Snapshot on
// ChannelAggregated. It keeps emitting on every later delivery.
//
// An Aggregator is itself an EventSource[Snapshot], so aggregators compose.
type Aggregator struct {
	opts options

	keys   []string
	values map[string]any
	filled map[string]bool
	bound  map[string]*Subscription

	root    *Scope
	sources *Scope
	events  *Emitter[Snapshot]

	disposed bool
}

// NewAggregator creates an empty aggregator.
func NewAggregator(name string, opts ...Option) *Aggregator {
	o := buildOptions(name, "aggregator", opts)
	root := NewScope(WithName(o.name), WithReporter(o.reporter))
	return &Aggregator{
		opts:    o,
		values:  make(map[string]any),
		filled:  make(map[string]bool),
		bound:   make(map[string]*Subscription),
		root:    root,
		sources: root.Scope(),
		events:  NewEmitter[Snapshot](o.name, WithReporter(o.reporter)),
	}
}

// Combine binds channel of src under the key "<src name>:<channel>".
// Combining a key again rebinds it: the old subscription is released and the
// key goes back to unset.
func Combine[T any](a *Aggregator, src EventSource[T], channel string) *Subscription {
	if a.disposed {
		return closedSubscription()
	}
	key := src.Name() + ":" + channel
	a.register(key)
	sub := src.On(channel, func(v T) {
		a.Set(key, v)
	})
	a.bind(key, sub)
	return sub
}

// CombineSignal binds a signal under the key "<signal name>:change". A set
// signal fills its key immediately through replay.
func CombineSignal[T any](a *Aggregator, src Source[T]) *Subscription {
	if a.disposed {
		return closedSubscription()
	}
	key := src.Name() + ":" + ChannelChange
	a.register(key)
	sub := src.Subscribe(func(v T) {
		a.Set(key, v)
	})
	a.bind(key, sub)
	return sub
}

// Name returns the aggregator's name.
func (a *Aggregator) Name() string {
	return a.opts.name
}

// On subscribes to the aggregator's own channels, normally ChannelAggregated.
func (a *Aggregator) On(channel string, fn func(Snapshot)) *Subscription {
	return a.events.On(channel, fn)
}

// Set stores value under key and emits when every key holds a value. Unknown
// keys are added.
func (a *Aggregator) Set(key string, value any) {
	if a.disposed {
		return
	}
	if _, known := a.filled[key]; !known {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
	a.filled[key] = true
	a.check()
}

// Ready reports whether every key holds a value.
func (a *Aggregator) Ready() bool {
	if len(a.keys) == 0 {
		return false
	}
	for _, key := range a.keys {
		if !a.filled[key] {
			return false
		}
	}
	return true
}

// Keys returns the keys in the order they were combined.
func (a *Aggregator) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Snapshot returns a copy of the keys that currently hold a value.
func (a *Aggregator) Snapshot() Snapshot {
	out := make(Snapshot, len(a.keys))
	for _, key := range a.keys {
		if a.filled[key] {
			out[key] = a.values[key]
		}
	}
	return out
}

// Scope mints a scope released when the aggregator is disposed.
func (a *Aggregator) Scope() *Scope {
	return a.root.Scope()
}

// Dispose clears the snapshot and detaches every source.
func (a *Aggregator) Dispose() {
	if a.disposed {
		return
	}
	a.disposed = true
	a.keys = nil
	a.values = make(map[string]any)
	a.filled = make(map[string]bool)
	a.bound = make(map[string]*Subscription)
	a.root.Dispose()
}

// IsDisposed reports whether Dispose was called.
func (a *Aggregator) IsDisposed() bool {
	return a.disposed
}

func (a *Aggregator) register(key string) {
	if old := a.bound[key]; old != nil {
		old.Dispose()
		delete(a.bound, key)
	}
	if _, known := a.filled[key]; !known {
		a.keys = append(a.keys, key)
	}
	delete(a.values, key)
	a.filled[key] = false
}

func (a *Aggregator) bind(key string, sub *Subscription) {
	a.bound[key] = sub
	a.sources.Add(sub)
}

func (a *Aggregator) check() {
	if !a.Ready() {
		return
	}
	a.events.Emit(ChannelAggregated, a.Snapshot())
}
