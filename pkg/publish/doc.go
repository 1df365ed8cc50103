// Package publish writes rendered output to a sink whenever a signal
// changes.
//
// DirSink writes files under a local directory, S3Sink and GCSSink put
// objects into a bucket, and RedisSink stores strings and announces them on
// a pub/sub channel. Bind connects a signal of rendered bytes to a sink and
// publishes from a background goroutine:
//
//	binding := publish.Bind(ctx, html, sink, "index.html", publish.Options{})
//	defer binding.Dispose()
package publish
