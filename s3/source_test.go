package s3_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/meigma/zipkit"
	zipkits3 "github.com/meigma/zipkit/s3"
)

// fakeAPI serves one in-memory object with S3 range and precondition
// semantics.
type fakeAPI struct {
	data []byte
	etag string

	lastVersionID string
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.lastVersionID = aws.ToString(in.VersionId)
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(f.data))),
		ETag:          aws.String(f.etag),
	}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastVersionID = aws.ToString(in.VersionId)
	if m := aws.ToString(in.IfMatch); m != "" && m != f.etag {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "etag mismatch"}
	}

	var start, end int64
	if _, err := fmt.Sscanf(aws.ToString(in.Range), "bytes=%d-%d", &start, &end); err != nil {
		return nil, &smithy.GenericAPIError{Code: "InvalidArgument", Message: "bad range"}
	}
	if start >= int64(len(f.data)) {
		return nil, &smithy.GenericAPIError{Code: "InvalidRange", Message: "start past end"}
	}
	if end >= int64(len(f.data)) {
		end = int64(len(f.data)) - 1
	}

	body := f.data[start : end+1]
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
	}, nil
}

func TestSourceReadAt(t *testing.T) {
	fake := &fakeAPI{data: []byte("hello world"), etag: `"abc"`}

	src, err := zipkits3.NewSource(context.Background(), fake, "bucket", "key")
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if src.Size() != int64(len(fake.data)) {
		t.Fatalf("Size() = %d, want %d", src.Size(), len(fake.data))
	}

	buf := make([]byte, 5)
	n, err := src.ReadAt(buf, 6)
	if err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if n != len(buf) || string(buf) != "world" {
		t.Fatalf("ReadAt() = %d, %q; want 5, %q", n, buf, "world")
	}

	edge := make([]byte, 10)
	n, err = src.ReadAt(edge, 8)
	if err != io.EOF {
		t.Fatalf("ReadAt() past end error = %v, want io.EOF", err)
	}
	if n != 3 || string(edge[:n]) != "rld" {
		t.Fatalf("ReadAt() past end = %d, %q; want 3, %q", n, edge[:n], "rld")
	}

	if _, err = src.ReadAt(buf, int64(len(fake.data))); err != io.EOF {
		t.Fatalf("ReadAt() at end error = %v, want io.EOF", err)
	}
}

func TestSourceReadRange(t *testing.T) {
	fake := &fakeAPI{data: []byte("0123456789abcdefghij"), etag: `"abc"`}

	src, err := zipkits3.NewSource(context.Background(), fake, "bucket", "key")
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	rc, err := src.ReadRange(5, 5)
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	rc.Close()
	if string(got) != "56789" {
		t.Fatalf("ReadRange() got %q, want %q", got, "56789")
	}

	rc, err = src.ReadRange(15, 100)
	if err != nil {
		t.Fatalf("ReadRange() clamped error = %v", err)
	}
	got, _ = io.ReadAll(rc)
	rc.Close()
	if string(got) != "fghij" {
		t.Fatalf("ReadRange() clamped got %q, want %q", got, "fghij")
	}

	if _, err = src.ReadRange(100, 1); err != io.EOF {
		t.Fatalf("ReadRange() past end error = %v, want io.EOF", err)
	}

	rc, err = src.ReadRange(3, 0)
	if err != nil {
		t.Fatalf("ReadRange() zero length error = %v", err)
	}
	got, _ = io.ReadAll(rc)
	if len(got) != 0 {
		t.Fatalf("ReadRange() zero length got %d bytes, want none", len(got))
	}
}

func TestSourceContentChanged(t *testing.T) {
	fake := &fakeAPI{data: []byte("original object content"), etag: `"v1"`}

	src, err := zipkits3.NewSource(context.Background(), fake, "bucket", "key")
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	fake.etag = `"v2"`
	fake.data = []byte("rewritten object, longer than before")

	buf := make([]byte, 4)
	_, err = src.ReadAt(buf, 0)
	if !errors.Is(err, zipkits3.ErrContentChanged) {
		t.Fatalf("ReadAt() error = %v, want ErrContentChanged", err)
	}
}

func TestSourceVersionID(t *testing.T) {
	fake := &fakeAPI{data: []byte("versioned content"), etag: `"abc"`}

	src, err := zipkits3.NewSource(context.Background(), fake, "bucket", "key",
		zipkits3.WithVersionID("v42"),
	)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if fake.lastVersionID != "v42" {
		t.Fatalf("HeadObject VersionId = %q, want %q", fake.lastVersionID, "v42")
	}

	buf := make([]byte, 4)
	if _, err := src.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	if fake.lastVersionID != "v42" {
		t.Fatalf("GetObject VersionId = %q, want %q", fake.lastVersionID, "v42")
	}
}

func TestSourceArchive(t *testing.T) {
	w := zipkit.NewWriter()
	if err := w.AddString("logs/app.log", "log line one\nlog line two\n"); err != nil {
		t.Fatalf("AddString() error = %v", err)
	}
	data, err := w.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	fake := &fakeAPI{data: data, etag: `"zip"`}
	src, err := zipkits3.NewSource(context.Background(), fake, "bucket", "archive.zip")
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}

	a, err := zipkit.OpenArchive(src)
	if err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}
	content, err := a.ReadFile("logs/app.log")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(content) != "log line one\nlog line two\n" {
		t.Fatalf("ReadFile() got %q", content)
	}
}
