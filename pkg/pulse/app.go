package pulse

import "fmt"

// Plugin extends an Application. Initialize receives the scope that owns
// everything the plugin registers; Remove or Dispose releases it.
type Plugin[E any] interface {
	Name() string
	Initialize(app *Application[E], scope *Scope) error
}

type funcPlugin[E any] struct {
	name string
	init func(*Application[E], *Scope) error
}

func (p funcPlugin[E]) Name() string { return p.name }

func (p funcPlugin[E]) Initialize(app *Application[E], scope *Scope) error {
	return p.init(app, scope)
}

// NewPlugin builds a Plugin from an initializer function.
func NewPlugin[E any](name string, init func(app *Application[E], scope *Scope) error) Plugin[E] {
	return funcPlugin[E]{name: name, init: init}
}

// Application is a plugin host: a root scope, one event bus and a child
// scope per installed plugin. It replaces process-wide registries; pass it
// to whatever needs the bus.
type Application[E any] struct {
	opts    options
	root    *Scope
	events  *Emitter[E]
	plugins map[string]*Scope
	order   []string
}

// NewApplication creates an application with an empty bus.
func NewApplication[E any](name string, opts ...Option) *Application[E] {
	o := buildOptions(name, "app", opts)
	root := NewScope(WithName(o.name), WithReporter(o.reporter))
	events := NewEmitter[E](o.name, WithReporter(o.reporter))
	return &Application[E]{
		opts:    o,
		root:    root,
		events:  events,
		plugins: make(map[string]*Scope),
	}
}

// Name returns the application's name.
func (a *Application[E]) Name() string {
	return a.opts.name
}

// Use installs p under its own child scope. A failing Initialize releases
// whatever the plugin registered before it failed.
func (a *Application[E]) Use(p Plugin[E]) error {
	if a.root.IsDisposed() {
		return ErrDisposed
	}
	name := p.Name()
	if _, exists := a.plugins[name]; exists {
		return fmt.Errorf("%w: %s", ErrPluginExists, name)
	}
	scope := a.root.Scope(WithName(a.opts.name + "/" + name))
	if err := p.Initialize(a, scope); err != nil {
		scope.Dispose()
		return fmt.Errorf("initialize plugin %s: %w", name, err)
	}
	a.plugins[name] = scope
	a.order = append(a.order, name)
	return nil
}

// Remove disposes the scope of the named plugin. It reports whether the
// plugin was installed.
func (a *Application[E]) Remove(name string) bool {
	scope, ok := a.plugins[name]
	if !ok {
		return false
	}
	delete(a.plugins, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i:i], a.order[i+1:]...)
			break
		}
	}
	scope.Dispose()
	return true
}

// Plugins returns installed plugin names in installation order.
func (a *Application[E]) Plugins() []string {
	return append([]string(nil), a.order...)
}

// HasPlugin reports whether name is installed.
func (a *Application[E]) HasPlugin(name string) bool {
	_, ok := a.plugins[name]
	return ok
}

// On subscribes to the application bus.
func (a *Application[E]) On(channel string, fn func(E)) *Subscription {
	return a.events.On(channel, fn)
}

// Emit publishes on the application bus.
func (a *Application[E]) Emit(channel string, payload E) {
	a.events.Emit(channel, payload)
}

// Scope returns the root scope.
func (a *Application[E]) Scope() *Scope {
	return a.root
}

// Dispose tears down every plugin, then the bus.
func (a *Application[E]) Dispose() {
	if a.root.IsDisposed() {
		return
	}
	a.plugins = make(map[string]*Scope)
	a.order = nil
	a.root.Dispose()
	a.events.Dispose()
}

// IsDisposed reports whether Dispose was called.
func (a *Application[E]) IsDisposed() bool {
	return a.root.IsDisposed()
}

