// Package live serves a board over HTTP and streams its patches to browsers.
//
// Pages are rendered on the server. Each WebSocket client first receives the
// current list markup as a reset message and then one JSON message per
// container patch. Clients that fall behind are dropped instead of slowing
// the board down.
//
//	srv := live.New(b, live.Config{Addr: ":8080"})
//	err := srv.Run(ctx)
package live
