package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/pulse/internal/board"
	"github.com/vango-dev/pulse/internal/config"
	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/internal/watch"
	"github.com/vango-dev/pulse/pkg/live"
	"github.com/vango-dev/pulse/pkg/publish"
	"github.com/vango-dev/pulse/pkg/pulse"
	"github.com/vango-dev/pulse/pkg/telemetry"
)

func (c *cli) serveCmd() *cobra.Command {
	var (
		addr    string
		items   string
		target  string
		metrics bool
		follow  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live board",
		Long: `Serve the board over HTTP. Browsers on / receive list changes as
patches over a WebSocket; the /items API changes the list.

Examples:
  pulse serve
  pulse serve --addr :3000 --items items.json --watch
  pulse serve --publish s3://my-bucket/boards --metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Serve.Addr = addr
			}
			if items == "" {
				items = c.cfg.ItemsPath()
			}
			if target == "" {
				target = c.cfg.PublishTarget()
			}
			if cmd.Flags().Changed("metrics") {
				c.cfg.Metrics.Enabled = metrics
			}
			return c.serve(cmd, items, target, follow)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default: "+config.DefaultAddr+")")
	cmd.Flags().StringVar(&items, "items", "", "JSON file with the initial items")
	cmd.Flags().StringVar(&target, "publish", "", "Publish every change to a directory or s3://bucket/prefix")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Expose Prometheus metrics on /metrics")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "Reload the items file when it changes")
	return cmd
}

// namedPlugin pairs a board plugin with its install name.
type namedPlugin struct {
	name   string
	plugin board.Plugin
}

func (c *cli) serve(cmd *cobra.Command, itemsPath, target string, follow bool) error {
	items, err := loadItems(itemsPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, telemetry.ExportConfig{
		Exporter: c.cfg.Tracing.Exporter,
		Writer:   cmd.ErrOrStderr(),
		Endpoint: c.cfg.Tracing.Endpoint,
		Insecure: c.cfg.Tracing.Insecure,
	})
	if err != nil {
		return errors.New("P203").Wrap(err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			c.logger.Warn("tracing shutdown", "error", err)
		}
	}()
	tracing := telemetry.NewTracing(otel.GetTracerProvider(), "pulse")

	var (
		m        *telemetry.Metrics
		gatherer prometheus.Gatherer
	)
	rep := tracing.Reporter(pulse.LogReporter{Logger: c.logger})
	if c.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = telemetry.NewMetrics(
			telemetry.WithRegistry(reg),
			telemetry.WithNamespace(c.cfg.Metrics.Namespace),
		)
		rep = m.Reporter(rep)
		gatherer = reg
	}

	// The sink is closed after the board, so queued pages still go out.
	var sink publish.Sink
	if target != "" {
		sink, err = newSink(ctx, target, c.cfg.Publish)
		if err != nil {
			return err
		}
		defer closeSink(sink, c.logger)
	}

	b := board.New(board.Config{
		Title:    c.cfg.Title,
		Reporter: rep,
		Logger:   c.logger.With("component", "board"),
	})
	defer b.Dispose()

	plugins := []namedPlugin{
		{"log", board.Log(nil)},
		{"tracing", board.Tracing(tracing)},
	}
	if m != nil {
		plugins = append(plugins, namedPlugin{"metrics", board.Metrics(m)})
	}
	if sink != nil {
		opts := publish.Options{Reporter: rep}
		if m != nil {
			opts.Observe = m.ObservePublish
		}
		plugins = append(plugins, namedPlugin{"publish", board.Publish(ctx, sink, c.cfg.Publish.Key, opts)})
	}
	for _, p := range plugins {
		if err := b.Use(p.name, p.plugin); err != nil {
			return errors.FromError(err, "P202")
		}
	}

	srv := live.New(b, live.Config{
		Addr:            c.cfg.Serve.Addr,
		SendBuffer:      c.cfg.Serve.SendBuffer,
		WriteTimeout:    c.cfg.WriteTimeout(),
		ShutdownTimeout: c.cfg.ShutdownTimeout(),
		CheckOrigin:     live.AllowOrigins(c.cfg.Serve.AllowedOrigins...),
		AccessLog:       c.cfg.Serve.AccessLog,
		MutationRate:    c.cfg.Serve.MutationRate,
		MutationBurst:   c.cfg.Serve.MutationBurst,
		Gatherer:        gatherer,
		Metrics:         m,
		Tracing:         tracing,
		Logger:          c.logger.With("component", "live"),
	})

	b.Do(func() {
		ready := b.Readiness()
		pulse.Combine(ready, srv.Events(), live.ChannelListening)
		ready.On(pulse.ChannelAggregated, func(s pulse.Snapshot) {
			addr, _ := pulse.Value[string](s, "live:"+live.ChannelListening)
			n, _ := pulse.Value[int](s, "board:"+board.ChannelLoaded)
			c.logger.Info("ready", "addr", addr, "items", n)
		})
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(ctx); err != nil {
			return errors.New("P202").Wrap(err)
		}
		return nil
	})
	g.Go(func() error {
		if err := b.Load(items); err != nil {
			return errors.New("P201").Wrap(err)
		}
		return nil
	})
	if follow && itemsPath != "" {
		g.Go(func() error {
			return c.watchItems(ctx, b, itemsPath)
		})
	}
	return g.Wait()
}

// watchItems syncs b with the items file until ctx is done. A broken file
// is logged and skipped; the board keeps its last good state.
func (c *cli) watchItems(ctx context.Context, b *board.Board, path string) error {
	w := watch.New(watch.Config{Paths: []string{path}})
	w.OnChange(func(ch watch.Change) {
		if ch.Removed {
			c.logger.Warn("items file removed", "path", path)
			return
		}
		items, err := loadItems(path)
		if err == nil {
			err = b.Sync(items)
		}
		if err != nil {
			c.logger.Error("reload items", "path", path, "error", err)
			return
		}
		c.logger.Info("items reloaded", "path", path, "items", len(items))
	})
	c.logger.Debug("watching items", "path", path)
	if err := w.Run(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
