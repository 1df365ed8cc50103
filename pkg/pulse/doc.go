// Package pulse provides a small synchronous reactive runtime.
//
// Everything in this package runs on the caller's goroutine. Setting a
// signal runs every subscriber before Set returns, and a subscriber that
// sets another signal completes that cascade first (depth-first). Nothing
// here is safe for concurrent use; callers that receive data from other
// goroutines must funnel it through a single logical thread.
//
// # Core Types
//
// Signal[T] is an observable value cell:
//
//	count := pulse.NewSignal(0)
//	sub := count.Subscribe(func(n int) { fmt.Println(n) }) // prints 0
//	count.Set(1)                                          // prints 1
//	count.Set(1)                                          // equal, silent
//	sub.Dispose()
//
// Emitter[T] is a named-channel publish/subscribe primitive:
//
//	db := pulse.NewEmitter[string]("db")
//	db.On("connected", func(dsn string) { ... })
//	db.Emit("connected", "postgres://...")
//
// Scope collects disposables and releases them exactly once, in insertion
// order. Scopes nest through Scope.Scope.
//
// Aggregator joins several (source, channel) pairs and emits "aggregated"
// with a keyed snapshot whenever every key holds a value:
//
//	agg := pulse.NewAggregator("system")
//	pulse.Combine(agg, db, "connected")
//	pulse.Combine(agg, ws, "open")
//	agg.On(pulse.ChannelAggregated, func(s pulse.Snapshot) { ... })
//
// # Derived Signals
//
// Map, CombineLatest and Combine2 build derived signals that own their
// upstream subscriptions; disposing the derived signal detaches it.
// Connection threads each notification through a chain of Steps and stops
// early when a step yields nil or false.
//
// # Failures
//
// A panicking subscriber, listener, step or disposable is recovered at the
// dispatch boundary and handed to the primitive's Reporter. The remaining
// callbacks still run and stored values are never rolled back.
package pulse
