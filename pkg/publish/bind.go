package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/pulse/pkg/pulse"
)

// Options tune Bind.
type Options struct {
	// ContentType is sent with every body (default: text/html; charset=utf-8).
	ContentType string

	// Reporter receives publish failures (default: pulse.LogReporter).
	Reporter pulse.Reporter

	// Observe, if set, is called after every attempt.
	Observe func(sink string, d time.Duration, err error)

	// Logger logs successful publishes at debug level.
	Logger *slog.Logger
}

// Binding publishes the values of a source from its own goroutine. Only the
// newest value is kept while a publish is in flight, so a slow sink never
// holds up whoever sets the source.
type Binding struct {
	sub *pulse.Subscription

	mu      sync.Mutex
	cond    *sync.Cond
	next    []byte
	queued  bool
	busy    bool
	stopped bool

	once sync.Once
	done chan struct{}
}

// Bind publishes every value of src to sink under key, starting with the
// current value. Failures go to the reporter and never reach the writer of
// src. Dispose the returned Binding to stop; it waits for the last queued
// value to be published.
func Bind(ctx context.Context, src pulse.Source[[]byte], sink Sink, key string, opts Options) *Binding {
	if opts.ContentType == "" {
		opts.ContentType = "text/html; charset=utf-8"
	}
	if opts.Reporter == nil {
		opts.Reporter = pulse.LogReporter{Logger: opts.Logger}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "publish")
	}
	source := fmt.Sprintf("publish:%s:%s", sink.Name(), key)

	publish := func(body []byte) {
		start := time.Now()
		err := sink.Publish(ctx, key, body, opts.ContentType)
		if opts.Observe != nil {
			opts.Observe(sink.Name(), time.Since(start), err)
		}
		if err != nil {
			opts.Reporter.Report(source, err)
			return
		}
		logger.Debug("published", "sink", sink.Name(), "key", key, "bytes", len(body))
	}

	b := &Binding{done: make(chan struct{})}
	b.cond = sync.NewCond(&b.mu)
	go b.run(publish)
	b.sub = src.Subscribe(b.offer)
	return b
}

// offer queues body, replacing anything not yet picked up.
func (b *Binding) offer(body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = body
	b.queued = true
	b.cond.Broadcast()
}

func (b *Binding) run(publish func([]byte)) {
	defer close(b.done)
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		for !b.queued && !b.stopped {
			b.cond.Wait()
		}
		if !b.queued {
			return
		}
		body := b.next
		b.next, b.queued, b.busy = nil, false, true
		b.mu.Unlock()
		publish(body)
		b.mu.Lock()
		b.busy = false
		b.cond.Broadcast()
	}
}

// Flush blocks until every value offered so far has been published or
// superseded.
func (b *Binding) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.queued || b.busy {
		b.cond.Wait()
	}
}

// Dispose stops listening to the source, publishes whatever is still queued
// and waits for the worker to exit. Calling it again only waits.
func (b *Binding) Dispose() {
	b.once.Do(func() {
		b.sub.Dispose()
		b.mu.Lock()
		b.stopped = true
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	<-b.done
}
