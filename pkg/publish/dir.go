package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirSink writes bodies as files under a directory.
type DirSink struct {
	dir     string
	maxSize int64
}

// NewDirSink creates dir if needed.
//
// Parameters:
//   - dir: Directory the keys are resolved against
//   - maxSize: Maximum body size in bytes (0 = no limit)
func NewDirSink(dir string, maxSize int64) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DirSink{dir: dir, maxSize: maxSize}, nil
}

// Name implements Sink.
func (s *DirSink) Name() string {
	return "dir"
}

// Dir returns the root directory.
func (s *DirSink) Dir() string {
	return s.dir
}

// Publish writes body to dir/key through a temp file and rename, so readers
// never see a partial file. contentType is ignored.
func (s *DirSink) Publish(ctx context.Context, key string, body []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" || !filepath.IsLocal(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if s.maxSize > 0 && int64(len(body)) > s.maxSize {
		return ErrTooLarge
	}

	path := filepath.Join(s.dir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".publish-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
