package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pulse/internal/board"
	"github.com/vango-dev/pulse/internal/config"
	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/pkg/publish"
	"github.com/vango-dev/pulse/pkg/pulse"
)

func (c *cli) renderCmd() *cobra.Command {
	var (
		out   string
		items string
		key   string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the board once",
		Long: `Render the board to a static HTML page and publish it.

The output goes to --out, or the configured publish target. Use "-" to
write the page to stdout.

Examples:
  pulse render --items items.json --out dist
  pulse render --out s3://my-bucket/boards
  pulse render --out -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if items == "" {
				items = c.cfg.ItemsPath()
			}
			if out == "" {
				out = c.cfg.PublishTarget()
			}
			if key == "" {
				key = c.cfg.Publish.Key
			}
			return c.render(cmd, items, out, key)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Directory, s3://bucket/prefix or - for stdout")
	cmd.Flags().StringVar(&items, "items", "", "JSON file with the initial items")
	cmd.Flags().StringVar(&key, "key", "", "File or object name (default: "+config.DefaultPublishKey+")")
	return cmd
}

func (c *cli) render(cmd *cobra.Command, itemsPath, out, key string) error {
	items, err := loadItems(itemsPath)
	if err != nil {
		return err
	}

	var failed error
	rep := pulse.ReporterFunc(func(source string, err error) {
		c.logger.Error("render failed", "source", source, "error", err)
		if failed == nil {
			failed = err
		}
	})
	b := board.New(board.Config{
		Title:    c.cfg.Title,
		Reporter: rep,
		Logger:   c.logger.With("component", "board"),
	})
	defer b.Dispose()

	if err := b.Load(items); err != nil {
		return errors.New("P201").Wrap(err)
	}

	if out == "" || out == "-" {
		_, err := cmd.OutOrStdout().Write(b.Page())
		return err
	}

	ctx := contextOrBackground(cmd.Context())
	sink, err := newSink(ctx, out, c.cfg.Publish)
	if err != nil {
		return err
	}
	defer closeSink(sink, c.logger)
	err = b.Use("publish", board.Publish(ctx, sink, key, publish.Options{Reporter: rep}))
	if err != nil {
		return errors.New("P301").Wrap(err)
	}
	// Uninstalling waits for the queued page to reach the sink.
	b.Uninstall("publish")
	if failed != nil {
		return errors.New("P301").Wrap(failed)
	}
	success(cmd.OutOrStdout(), "Rendered %d items to %s", b.Len(), out)
	return nil
}

// contextOrBackground guards commands executed without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
