package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/pulse/pkg/pulse"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestDirSinkPublish(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDirSink(filepath.Join(dir, "out"), 0)
	if err != nil {
		t.Fatalf("NewDirSink: %v", err)
	}

	if err := sink.Publish(context.Background(), "boards/index.html", []byte("<ul></ul>"), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := sink.Publish(context.Background(), "boards/index.html", []byte("<ul><li>a</li></ul>"), ""); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "out", "boards", "index.html"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "<ul><li>a</li></ul>" {
		t.Errorf("got %q", got)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "out", "boards"))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestDirSinkRejects(t *testing.T) {
	sink, err := NewDirSink(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("NewDirSink: %v", err)
	}

	tests := []struct {
		name string
		key  string
		body string
		want error
	}{
		{"empty key", "", "x", ErrInvalidKey},
		{"escaping key", "../x", "x", ErrInvalidKey},
		{"absolute key", "/etc/x", "x", ErrInvalidKey},
		{"too large", "a", "12345", ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sink.Publish(context.Background(), tt.key, []byte(tt.body), "")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.Publish(ctx, "a", nil, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestS3SinkPublish(t *testing.T) {
	client := &fakeS3{}
	sink := NewS3Sink(client, "bucket", "boards/")

	if err := sink.Publish(context.Background(), "index.html", []byte("<ul></ul>"), "text/html"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(client.inputs))
	}
	in := client.inputs[0]
	if aws.ToString(in.Bucket) != "bucket" || aws.ToString(in.Key) != "boards/index.html" {
		t.Errorf("unexpected target %s/%s", aws.ToString(in.Bucket), aws.ToString(in.Key))
	}
	if aws.ToString(in.ContentType) != "text/html" {
		t.Errorf("unexpected content type %q", aws.ToString(in.ContentType))
	}
	if string(client.bodies[0]) != "<ul></ul>" {
		t.Errorf("unexpected body %q", client.bodies[0])
	}
	if _, ok := in.Metadata["publish-time"]; !ok {
		t.Error("expected publish-time metadata")
	}
}

func TestS3SinkErrors(t *testing.T) {
	denied := errors.New("access denied")
	sink := NewS3Sink(&fakeS3{err: denied}, "bucket", "")

	if err := sink.Publish(context.Background(), "a", nil, ""); !errors.Is(err, denied) {
		t.Errorf("expected wrapped client error, got %v", err)
	}
	if err := sink.Publish(context.Background(), "../a", nil, ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		raw, bucket, prefix string
		ok                  bool
	}{
		{"s3://bucket/boards/daily", "bucket", "boards/daily", true},
		{"s3://bucket", "bucket", "", true},
		{"s3://", "", "", false},
		{"s3:///prefix", "", "", false},
		{"./out", "", "", false},
	}
	for _, tt := range tests {
		bucket, prefix, ok := ParseS3URL(tt.raw)
		if bucket != tt.bucket || prefix != tt.prefix || ok != tt.ok {
			t.Errorf("ParseS3URL(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.raw, bucket, prefix, ok, tt.bucket, tt.prefix, tt.ok)
		}
	}
}

func TestNewS3Client(t *testing.T) {
	client := NewS3Client(S3Config{Region: "eu-west-1", Endpoint: "http://localhost:9000", PathStyle: true})
	opts := client.Options()
	if opts.Region != "eu-west-1" || !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("unexpected options: region=%q pathStyle=%v endpoint=%q",
			opts.Region, opts.UsePathStyle, aws.ToString(opts.BaseEndpoint))
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := envCredentials().Retrieve(context.Background()); !errors.Is(err, errMissingCredentials) {
		t.Errorf("expected missing credentials error, got %v", err)
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	creds, err := envCredentials().Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "id" {
		t.Errorf("unexpected credentials %+v, %v", creds, err)
	}
}

func TestBind(t *testing.T) {
	client := &fakeS3{}
	sink := NewS3Sink(client, "bucket", "")
	html := pulse.NewSignal([]byte("<p>1</p>"))

	var observed []error
	binding := Bind(context.Background(), html, sink, "page.html", Options{
		Observe: func(name string, _ time.Duration, err error) {
			if name != "s3" {
				t.Errorf("unexpected sink name %q", name)
			}
			observed = append(observed, err)
		},
	})
	binding.Flush()
	if len(client.bodies) != 1 || string(client.bodies[0]) != "<p>1</p>" {
		t.Fatalf("expected the current value to be published, got %q", client.bodies)
	}

	html.Set([]byte("<p>2</p>"))
	binding.Flush()

	if len(client.bodies) != 2 || string(client.bodies[1]) != "<p>2</p>" {
		t.Fatalf("expected replay and one update, got %q", client.bodies)
	}
	if aws.ToString(client.inputs[0].ContentType) != "text/html; charset=utf-8" {
		t.Errorf("unexpected default content type %q", aws.ToString(client.inputs[0].ContentType))
	}
	if len(observed) != 2 || observed[0] != nil {
		t.Errorf("unexpected observations %v", observed)
	}

	binding.Dispose()
	binding.Dispose()
	html.Set([]byte("<p>3</p>"))
	if len(client.bodies) != 2 {
		t.Error("released binding should stop publishing")
	}
}

// gatedSink blocks every publish until release is closed.
type gatedSink struct {
	started chan struct{}
	release chan struct{}
	bodies  []string
}

func (s *gatedSink) Name() string { return "gated" }

func (s *gatedSink) Publish(_ context.Context, _ string, body []byte, _ string) error {
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-s.release
	s.bodies = append(s.bodies, string(body))
	return nil
}

func TestBindDoesNotBlockWriter(t *testing.T) {
	sink := &gatedSink{started: make(chan struct{}, 1), release: make(chan struct{})}
	html := pulse.NewSignal([]byte("v0"))
	binding := Bind(context.Background(), html, sink, "k", Options{})

	select {
	case <-sink.started:
	case <-time.After(time.Second):
		t.Fatal("first publish never started")
	}

	set := make(chan struct{})
	go func() {
		html.Set([]byte("v1"))
		html.Set([]byte("v2"))
		html.Set([]byte("v3"))
		close(set)
	}()
	select {
	case <-set:
	case <-time.After(time.Second):
		t.Fatal("Set blocked behind a slow sink")
	}

	close(sink.release)
	binding.Dispose()

	if len(sink.bodies) != 2 || sink.bodies[0] != "v0" || sink.bodies[1] != "v3" {
		t.Errorf("bodies = %v, want [v0 v3]", sink.bodies)
	}
}

func TestBindReportsFailures(t *testing.T) {
	denied := errors.New("access denied")
	var reported []string
	html := pulse.NewSignal([]byte("x"))

	binding := Bind(context.Background(), html, NewS3Sink(&fakeS3{err: denied}, "b", ""), "k", Options{
		Reporter: pulse.ReporterFunc(func(source string, err error) {
			if !errors.Is(err, denied) {
				t.Errorf("unexpected error %v", err)
			}
			reported = append(reported, source)
		}),
	})
	binding.Dispose()

	if len(reported) != 1 || reported[0] != "publish:s3:k" {
		t.Errorf("expected one report from publish:s3:k, got %v", reported)
	}
	if string(html.Get()) != "x" {
		t.Error("signal value should be untouched")
	}
}
