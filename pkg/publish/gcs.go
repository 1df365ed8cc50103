package publish

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// openFunc opens a writer for one object. The object is committed on Close.
type openFunc func(ctx context.Context, bucket, object, contentType string) io.WriteCloser

// GCSSink writes bodies to a Google Cloud Storage bucket.
//
//	client, err := publish.NewGCSClient(ctx, "")
//	sink := publish.NewGCSSink(client, "my-bucket", "boards/")
type GCSSink struct {
	open   openFunc
	close  func() error
	bucket string
	prefix string
}

// NewGCSSink creates a sink writing to bucket under prefix.
func NewGCSSink(client *storage.Client, bucket, prefix string) *GCSSink {
	return &GCSSink{
		open: func(ctx context.Context, bucket, object, contentType string) io.WriteCloser {
			w := client.Bucket(bucket).Object(object).NewWriter(ctx)
			w.ContentType = contentType
			w.CacheControl = "no-cache"
			w.Metadata = map[string]string{
				"publish-time": time.Now().UTC().Format(time.RFC3339),
			}
			return w
		},
		close:  client.Close,
		bucket: bucket,
		prefix: prefix,
	}
}

// Name implements Sink.
func (s *GCSSink) Name() string {
	return "gcs"
}

// Close releases the storage client.
func (s *GCSSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Publish writes body to prefix+key. A failed write cancels the upload so
// the previous object stays in place.
func (s *GCSSink) Publish(ctx context.Context, key string, body []byte, contentType string) error {
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := s.open(ctx, s.bucket, path.Join(s.prefix, key), contentType)
	if _, err := w.Write(body); err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("gcs upload failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs upload failed: %w", err)
	}
	return nil
}

// NewGCSClient creates a storage client. An empty credentialsFile uses
// Application Default Credentials.
func NewGCSClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return client, nil
}

// ParseGCSURL splits gs://bucket/prefix into its parts.
func ParseGCSURL(raw string) (bucket, prefix string, ok bool) {
	return parseBucketURL("gs", raw)
}
