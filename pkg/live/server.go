package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/vango-dev/pulse/internal/board"
	"github.com/vango-dev/pulse/pkg/keyed"
	"github.com/vango-dev/pulse/pkg/pulse"
	"github.com/vango-dev/pulse/pkg/telemetry"
	"github.com/vango-dev/pulse/pkg/vdom"
)

// Lifecycle channels of Server.Events.
const (
	ChannelListening = "listening"
	ChannelStopped   = "stopped"
)

// maxBodySize limits JSON request bodies.
const maxBodySize = 1 << 20

// Config configures a Server.
type Config struct {
	// Addr is the TCP address Run listens on.
	Addr string

	// ReadBufferSize and WriteBufferSize size the WebSocket I/O buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// SendBuffer is the number of messages queued per client before the
	// client is dropped.
	SendBuffer int

	WriteTimeout    time.Duration
	PingInterval    time.Duration
	ShutdownTimeout time.Duration

	// CheckOrigin validates WebSocket origins. Nil allows same-origin only.
	CheckOrigin func(r *http.Request) bool

	// AccessLog enables chi's request logger.
	AccessLog bool

	// MutationRate limits item changes through the API, in requests per
	// second across all clients. Zero disables the limit.
	MutationRate float64

	// MutationBurst is the number of changes allowed at once (default: 1
	// when MutationRate is set).
	MutationBurst int

	// Gatherer, if set, is served on /metrics.
	Gatherer prometheus.Gatherer

	Metrics *telemetry.Metrics
	Tracing *telemetry.Tracing
	Logger  *slog.Logger
}

// DefaultConfig returns the defaults applied to zero fields.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      64,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.MutationRate > 0 && c.MutationBurst <= 0 {
		c.MutationBurst = 1
	}
}

// Server exposes a board over HTTP and WebSocket.
type Server struct {
	config   Config
	board    *board.Board
	hub      *hub
	upgrader websocket.Upgrader
	router   chi.Router
	events   *pulse.Emitter[string]
	limiter  *rate.Limiter
	tracing  *telemetry.Tracing
	logger   *slog.Logger
}

// New creates a server for b.
func New(b *board.Board, config Config) *Server {
	config.applyDefaults()
	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "live")
	}
	tracing := config.Tracing
	if tracing == nil {
		tracing = telemetry.NewTracing(nil, "pulse/live")
	}

	s := &Server{
		config: config,
		board:  b,
		hub:    newHub(config, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		events:  pulse.NewEmitter[string]("live"),
		tracing: tracing,
		logger:  logger,
	}
	if config.MutationRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.MutationRate), config.MutationBurst)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.config.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	if s.config.Metrics != nil {
		r.Use(s.instrument)
	}

	r.Get("/", s.handlePage)
	r.Get("/live.js", s.handleScript)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	if s.config.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/items", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Group(func(r chi.Router) {
			r.Use(s.limit)
			r.Post("/", s.handleAdd)
			r.Put("/{id}", s.handleEnsure)
			r.Delete("/{id}", s.handleRemove)
			r.Post("/{id}/before/{ref}", s.handleInsert)
		})
	})
	return r
}

// limit rejects mutations beyond MutationRate with 429.
func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many changes, slow down"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records every request under its route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.config.Metrics.ObserveRequest(r.Method+" "+route, status, time.Since(start))
	})
}

// AllowOrigins returns a CheckOrigin that accepts same-origin requests,
// requests without an Origin header and the listed origins.
func AllowOrigins(origins ...string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(origins, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Events publishes ChannelListening and ChannelStopped with the bound
// address. Like everything reactive, use it inside Board.Do.
func (s *Server) Events() *pulse.Emitter[string] {
	return s.events
}

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int {
	return s.hub.len()
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	addr := ln.Addr().String()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", "addr", addr)
	s.board.Do(func() { s.events.Emit(ChannelListening, addr) })

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.hub.closeAll()
	err := srv.Shutdown(shutdownCtx)
	s.board.Do(func() { s.events.Emit(ChannelStopped, addr) })
	s.logger.Info("stopped", "addr", addr)
	return err
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.board.WritePage(w, "/live.js"); err != nil {
		s.logger.Error("write page", "error", err)
	}
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	io.WriteString(w, clientScript)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := s.hub.add(conn)
	sub, err := s.board.Watch(
		func(html []byte) {
			msg, err := encodeReset(html)
			if err != nil {
				s.logger.Error("encode reset", "error", err)
				return
			}
			s.hub.enqueue(c, msg)
		},
		func(p vdom.Patch) {
			msg, err := Encode(p)
			if err != nil {
				s.logger.Error("encode patch", "error", err)
				return
			}
			if s.hub.enqueue(c, msg) && s.config.Metrics != nil {
				s.config.Metrics.RecordPatches(1)
			}
		},
	)
	if err != nil {
		s.logger.Error("watch board", "error", err)
		s.hub.remove(c, false)
		conn.Close()
		return
	}
	go func() {
		<-c.done
		s.board.Unwatch(sub)
	}()

	go s.hub.writeLoop(c)
	s.hub.readLoop(c)
}

type itemRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	items := s.board.Items()
	if items == nil {
		items = []board.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeItem(w, r)
	if !ok {
		return
	}
	_, span := s.tracing.Start(r.Context(), "board.add")
	it, err := s.board.Add(req.Text)
	telemetry.End(span, err)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/items/"+it.ID)
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleEnsure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := decodeItem(w, r)
	if !ok {
		return
	}
	_, span := s.tracing.Start(r.Context(), "board.ensure", attribute.String("item.id", id))
	err := s.board.Ensure(board.Item{ID: id, Text: req.Text})
	telemetry.End(span, err)
	if err != nil {
		writeError(w, err)
		return
	}
	it, _ := s.board.Get(id)
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ref := chi.URLParam(r, "ref")
	req, ok := decodeItem(w, r)
	if !ok {
		return
	}
	_, span := s.tracing.Start(r.Context(), "board.insert_before",
		attribute.String("item.id", id), attribute.String("item.ref", ref))
	err := s.board.InsertBefore(board.Item{ID: id, Text: req.Text}, ref)
	telemetry.End(span, err)
	if err != nil {
		writeError(w, err)
		return
	}
	it, _ := s.board.Get(id)
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, span := s.tracing.Start(r.Context(), "board.remove", attribute.String("item.id", id))
	err := s.board.Remove(id)
	telemetry.End(span, err)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeItem(w http.ResponseWriter, r *http.Request) (itemRequest, bool) {
	var req itemRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return req, false
	}
	return req, true
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps board and list errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrEmptyText), errors.Is(err, keyed.ErrInvalidIdentity):
		return http.StatusBadRequest
	case errors.Is(err, keyed.ErrUnknownIdentity):
		return http.StatusNotFound
	case errors.Is(err, keyed.ErrDuplicateIdentity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
