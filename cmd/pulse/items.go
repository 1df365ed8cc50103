package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vango-dev/pulse/internal/board"
	"github.com/vango-dev/pulse/internal/config"
	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/pkg/publish"
)

// loadItems reads a JSON array of items. An empty path means no items.
func loadItems(path string) ([]board.Item, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("P201").Wrap(err)
	}
	var items []board.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.New("P201").Wrap(err).
			WithSuggestion(`Use [{"id": "a", "text": "first"}, ...]`)
	}
	return items, nil
}

// newSink builds the sink for target: an s3:// or gs:// URL, a redis://
// server, or a directory.
func newSink(ctx context.Context, target string, cfg config.PublishConfig) (publish.Sink, error) {
	switch {
	case strings.HasPrefix(target, "gs://"):
		bucket, prefix, ok := publish.ParseGCSURL(target)
		if !ok {
			return nil, errors.New("P300").WithDetail(target + " has no bucket")
		}
		client, err := publish.NewGCSClient(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, errors.New("P300").Wrap(err)
		}
		return publish.NewGCSSink(client, bucket, prefix), nil
	case publish.IsRedisURL(target):
		client, err := publish.NewRedisClient(target)
		if err != nil {
			return nil, errors.New("P300").Wrap(err)
		}
		return publish.NewRedisSink(client, cfg.RedisPrefix, publish.DefaultRedisChannel), nil
	case strings.HasPrefix(target, "s3://"):
		bucket, prefix, ok := publish.ParseS3URL(target)
		if !ok {
			return nil, errors.New("P300").WithDetail(target + " has no bucket")
		}
		client := publish.NewS3Client(publish.S3Config{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
		return publish.NewS3Sink(client, bucket, prefix), nil
	case target == "":
		return nil, errors.New("P300").WithDetail("no publish target configured")
	}
	sink, err := publish.NewDirSink(target, cfg.MaxSize)
	if err != nil {
		return nil, errors.New("P300").Wrap(err)
	}
	return sink, nil
}

// closeSink releases the client behind sink, if it holds one.
func closeSink(sink publish.Sink, logger *slog.Logger) {
	c, ok := sink.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("close sink", "sink", sink.Name(), "error", err)
	}
}
