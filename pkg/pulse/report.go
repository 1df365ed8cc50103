package pulse

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Reporter receives failures recovered at a dispatch boundary.
type Reporter interface {
	Report(source string, err error)
}

// ReporterFunc adapts an ordinary function to the Reporter interface.
type ReporterFunc func(source string, err error)

// Report calls f(source, err).
func (f ReporterFunc) Report(source string, err error) {
	f(source, err)
}

// LogReporter writes every failure to a slog.Logger.
// A nil Logger means slog.Default().
type LogReporter struct {
	Logger *slog.Logger
}

// Report logs err at error level.
func (r LogReporter) Report(source string, err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("callback failed", "source", source, "error", err)
}

// options are shared by every primitive constructor.
type options struct {
	name     string
	reporter Reporter
}

// Option configures a Signal, Emitter, Scope, Aggregator or Application.
type Option func(*options)

// WithName sets the primitive's name. Names identify sources in aggregator
// keys and in failure reports.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithReporter sets where recovered callback failures go.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

func buildOptions(name, prefix string, opts []Option) options {
	o := options{name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.name == "" {
		o.name = fmt.Sprintf("%s-%d", prefix, nextID())
	}
	if o.reporter == nil {
		o.reporter = LogReporter{}
	}
	return o
}

// guard runs fn and turns a panic into a report. It returns false when fn
// panicked.
func guard(r Reporter, source string, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			r.Report(source, &CallbackError{
				Source:    source,
				Recovered: rec,
				Stack:     debug.Stack(),
			})
		}
	}()
	fn()
	return true
}
