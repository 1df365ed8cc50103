package pulse

import "sort"

// Wildcard is the channel whose listeners receive every emission.
const Wildcard = "*"

// EventSource is anything that publishes typed payloads on named channels.
// Emitter, Aggregator, Application and keyed lists are all event sources.
type EventSource[T any] interface {
	Name() string
	On(channel string, fn func(T)) *Subscription
}

// Emitter is a named-channel publish/subscribe primitive. Every channel of an
// emitter carries the same payload type T.
type Emitter[T any] struct {
	opts     options
	channels map[string]*listeners[T]
}

// NewEmitter creates an emitter. The name identifies it in aggregator keys.
func NewEmitter[T any](name string, opts ...Option) *Emitter[T] {
	return &Emitter[T]{
		opts:     buildOptions(name, "emitter", opts),
		channels: make(map[string]*listeners[T]),
	}
}

// Name returns the emitter's name.
func (e *Emitter[T]) Name() string {
	return e.opts.name
}

// On registers fn for channel. Subscribe to Wildcard to receive every
// emission.
func (e *Emitter[T]) On(channel string, fn func(T)) *Subscription {
	if fn == nil {
		return closedSubscription()
	}
	ls := e.channels[channel]
	if ls == nil {
		ls = &listeners[T]{}
		e.channels[channel] = ls
	}
	l := ls.add(fn)
	return newSubscription(func() {
		ls.remove(l)
		if ls.len() == 0 && e.channels[channel] == ls {
			delete(e.channels, channel)
		}
	})
}

// Subscribe is an alias for On.
func (e *Emitter[T]) Subscribe(channel string, fn func(T)) *Subscription {
	return e.On(channel, fn)
}

// Off releases a registration made by On. It is equivalent to sub.Dispose().
func (e *Emitter[T]) Off(sub *Subscription) {
	sub.Dispose()
}

// Emit calls the listeners of channel in registration order, then the
// wildcard listeners. The listener set is captured when Emit starts:
// listeners added during the emission wait for the next one, listeners
// removed during it are skipped.
func (e *Emitter[T]) Emit(channel string, payload T) {
	source := e.opts.name + ":" + channel
	if ls := e.channels[channel]; ls != nil {
		ls.dispatch(e.opts.reporter, source, payload)
	}
	if channel == Wildcard {
		return
	}
	if ls := e.channels[Wildcard]; ls != nil {
		ls.dispatch(e.opts.reporter, source, payload)
	}
}

// ListenerCount returns the number of listeners registered for channel.
func (e *Emitter[T]) ListenerCount(channel string) int {
	if ls := e.channels[channel]; ls != nil {
		return ls.len()
	}
	return 0
}

// Channels returns the channels that currently have listeners, sorted.
func (e *Emitter[T]) Channels() []string {
	out := make([]string, 0, len(e.channels))
	for name := range e.channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispose removes every listener. It makes Emitter a Disposable.
func (e *Emitter[T]) Dispose() {
	e.Clear()
}

// Clear removes every listener on every channel.
func (e *Emitter[T]) Clear() {
	for _, ls := range e.channels {
		ls.clear()
	}
	e.channels = make(map[string]*listeners[T])
}
