package board

import (
	"context"
	"log/slog"

	"github.com/vango-dev/pulse/pkg/publish"
	"github.com/vango-dev/pulse/pkg/pulse"
	"github.com/vango-dev/pulse/pkg/telemetry"
)

// Plugin attaches behavior to a board. Everything it registers goes into
// scope, which is released when the plugin is removed or the board disposed.
type Plugin func(b *Board, scope *pulse.Scope) error

// Use installs p under name.
func (b *Board) Use(name string, p Plugin) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.app.Use(pulse.NewPlugin(name, func(_ *pulse.Application[Change], scope *pulse.Scope) error {
		return p(b, scope)
	}))
}

// Uninstall removes the named plugin and releases its scope.
func (b *Board) Uninstall(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.app.Remove(name)
}

// Plugins lists installed plugins in install order.
func (b *Board) Plugins() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.app.Plugins()
}

// Metrics exports list mutations, item count and readiness fires.
func Metrics(m *telemetry.Metrics) Plugin {
	return func(b *Board, scope *pulse.Scope) error {
		scope.Add(
			telemetry.ObserveList[Item](m, b.list),
			telemetry.ObserveSignal[int](m, b.count),
			telemetry.ObserveAggregator(m, b.ready),
		)
		return nil
	}
}

// Tracing records a span each time the board becomes ready.
func Tracing(t *telemetry.Tracing) Plugin {
	return func(b *Board, scope *pulse.Scope) error {
		scope.Add(t.TraceAggregator(b.ready))
		return nil
	}
}

// Publish writes the static page to sink under key, once on install and
// again on every change.
func Publish(ctx context.Context, sink publish.Sink, key string, opts publish.Options) Plugin {
	return func(b *Board, scope *pulse.Scope) error {
		if opts.Logger == nil {
			opts.Logger = b.logger
		}
		scope.Add(publish.Bind(ctx, b.page, sink, key, opts))
		return nil
	}
}

// Log writes every change at debug level.
func Log(logger *slog.Logger) Plugin {
	return func(b *Board, scope *pulse.Scope) error {
		if logger == nil {
			logger = b.logger
		}
		scope.Add(b.app.On(pulse.Wildcard, func(c Change) {
			logger.Debug("board changed", "op", c.Op.String(), "id", c.ID)
		}))
		return nil
	}
}
