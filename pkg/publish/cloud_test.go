package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

type fakeObject struct {
	bucket, object, contentType string
	buf                         bytes.Buffer
	writeErr, closeErr          error
	closed                      bool
}

func (o *fakeObject) Write(p []byte) (int, error) {
	if o.writeErr != nil {
		return 0, o.writeErr
	}
	return o.buf.Write(p)
}

func (o *fakeObject) Close() error {
	o.closed = true
	return o.closeErr
}

func fakeGCS(obj *fakeObject, bucket, prefix string) *GCSSink {
	return &GCSSink{
		open: func(_ context.Context, b, o, ct string) io.WriteCloser {
			obj.bucket, obj.object, obj.contentType = b, o, ct
			return obj
		},
		bucket: bucket,
		prefix: prefix,
	}
}

func TestGCSSinkPublish(t *testing.T) {
	obj := &fakeObject{}
	sink := fakeGCS(obj, "bucket", "boards")

	if err := sink.Publish(context.Background(), "index.html", []byte("<p>hi</p>"), "text/html"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if obj.bucket != "bucket" || obj.object != "boards/index.html" || obj.contentType != "text/html" {
		t.Errorf("unexpected object %s/%s (%s)", obj.bucket, obj.object, obj.contentType)
	}
	if obj.buf.String() != "<p>hi</p>" || !obj.closed {
		t.Errorf("body=%q closed=%v", obj.buf.String(), obj.closed)
	}
	if sink.Name() != "gcs" {
		t.Errorf("Name() = %q", sink.Name())
	}

	var closed int
	sink.close = func() error { closed++; return nil }
	if err := sink.Close(); err != nil || closed != 1 {
		t.Errorf("Close() = %v, closed %d times", err, closed)
	}
}

func TestGCSSinkErrors(t *testing.T) {
	denied := errors.New("denied")
	tests := []struct {
		name string
		obj  *fakeObject
		key  string
		want error
	}{
		{"write", &fakeObject{writeErr: denied}, "k", denied},
		{"close", &fakeObject{closeErr: denied}, "k", denied},
		{"empty key", &fakeObject{}, "", ErrInvalidKey},
		{"escaping key", &fakeObject{}, "../k", ErrInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fakeGCS(tt.obj, "b", "").Publish(context.Background(), tt.key, []byte("x"), "")
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseGCSURL(t *testing.T) {
	tests := []struct {
		raw, bucket, prefix string
		ok                  bool
	}{
		{"gs://bucket/boards", "bucket", "boards", true},
		{"gs://bucket", "bucket", "", true},
		{"gs://", "", "", false},
		{"s3://bucket", "", "", false},
	}
	for _, tt := range tests {
		bucket, prefix, ok := ParseGCSURL(tt.raw)
		if bucket != tt.bucket || prefix != tt.prefix || ok != tt.ok {
			t.Errorf("ParseGCSURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.raw, bucket, prefix, ok, tt.bucket, tt.prefix, tt.ok)
		}
	}
}

type fakeRedis struct {
	values    map[string]interface{}
	published []string
	setErr    error
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	if f.values == nil {
		f.values = make(map[string]interface{})
	}
	f.values[key] = value
	return redis.NewStatusResult("OK", nil)
}

type closingRedis struct {
	fakeRedis
	closed bool
}

func (c *closingRedis) Close() error {
	c.closed = true
	return nil
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.published = append(f.published, channel+"="+message.(string))
	return redis.NewIntResult(1, nil)
}

func TestRedisSinkPublish(t *testing.T) {
	client := &fakeRedis{}
	sink := NewRedisSink(client, "board:", DefaultRedisChannel)

	if err := sink.Publish(context.Background(), "index.html", []byte("<p>hi</p>"), "text/html"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got, _ := client.values["board:index.html"].([]byte); string(got) != "<p>hi</p>" {
		t.Errorf("stored %v", client.values)
	}
	if len(client.published) != 1 || client.published[0] != "pulse:published=board:index.html" {
		t.Errorf("published %v", client.published)
	}

	quiet := &fakeRedis{}
	if err := NewRedisSink(quiet, "", "").Publish(context.Background(), "k", []byte("x"), ""); err != nil {
		t.Fatal(err)
	}
	if len(quiet.published) != 0 {
		t.Errorf("empty channel should not publish: %v", quiet.published)
	}

	if err := NewRedisSink(quiet, "", "").Close(); err != nil {
		t.Errorf("Close() on a client without Close = %v", err)
	}
	closing := &closingRedis{}
	if err := NewRedisSink(closing, "", "").Close(); err != nil || !closing.closed {
		t.Errorf("Close() = %v, closed = %v", err, closing.closed)
	}

	denied := errors.New("denied")
	err := NewRedisSink(&fakeRedis{setErr: denied}, "", "c").Publish(context.Background(), "k", []byte("x"), "")
	if !errors.Is(err, denied) {
		t.Errorf("Publish() error = %v, want %v", err, denied)
	}
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("redis://localhost:6380/2")
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()
	if opts := client.Options(); opts.Addr != "localhost:6380" || opts.DB != 2 {
		t.Errorf("Addr=%q DB=%d", opts.Addr, opts.DB)
	}

	if _, err := NewRedisClient("http://localhost"); err == nil {
		t.Error("expected error for a non-redis URL")
	}

	for target, want := range map[string]bool{
		"redis://h":  true,
		"rediss://h": true,
		"s3://b":     false,
		"./out":      false,
	} {
		if got := IsRedisURL(target); got != want {
			t.Errorf("IsRedisURL(%q) = %v, want %v", target, got, want)
		}
	}
}
