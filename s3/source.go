// Package s3 provides an archive byte source backed by S3 ranged object
// reads, so archives in buckets can be read without downloading them
// whole. It works with any client compatible with the AWS SDK v2 S3
// client, including S3-compatible stores.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ErrContentChanged reports that the object no longer matches the ETag
// captured when the source was created.
var ErrContentChanged = errors.New("zipkit/s3: object changed")

// API is the subset of the S3 client the source depends on.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Interface compliance.
var _ API = (*s3.Client)(nil)

// Source reads an S3 object through ranged GetObject calls. It satisfies
// zipkit.ByteSource and zipkit.RangeReader, so archive members stream
// straight from the bucket.
//
// The ETag captured at creation rides along on every read as an IfMatch
// precondition; a read against a replaced object fails with
// ErrContentChanged instead of returning bytes from a different archive.
type Source struct {
	client    API
	bucket    string
	key       string
	versionID string
	ctx       context.Context

	size int64
	etag string
}

// Option configures a Source.
type Option func(*Source)

// WithVersionID pins reads to a specific object version.
func WithVersionID(versionID string) Option {
	return func(s *Source) {
		s.versionID = versionID
	}
}

// NewSource heads the object and returns a range-reading source for it.
//
// ReadAt carries no context of its own, so ctx applies to every later
// read from this source as well as the initial HeadObject.
func NewSource(ctx context.Context, client API, bucket, key string, opts ...Option) (*Source, error) {
	s := &Source{
		client: client,
		bucket: bucket,
		key:    key,
		ctx:    ctx,
	}
	for _, opt := range opts {
		opt(s)
	}

	input := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if s.versionID != "" {
		input.VersionId = aws.String(s.versionID)
	}
	head, err := client.HeadObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}

	s.size = aws.ToInt64(head.ContentLength)
	s.etag = aws.ToString(head.ETag)
	return s, nil
}

// Size returns the total size of the object.
func (s *Source) Size() int64 {
	return s.size
}

// ReadRange returns a reader over length bytes starting at off. Ranges
// reaching past the end of the object are clamped; a range starting at or
// past the end returns an empty reader with io.EOF.
func (s *Source) ReadRange(off, length int64) (io.ReadCloser, error) {
	switch {
	case length < 0:
		return nil, fmt.Errorf("read range length %d: negative length", length)
	case off < 0:
		return nil, fmt.Errorf("read range %d: negative offset", off)
	case length == 0:
		return io.NopCloser(bytes.NewReader(nil)), nil
	case off >= s.size:
		return io.NopCloser(bytes.NewReader(nil)), io.EOF
	}
	if length > s.size-off {
		length = s.size - off
	}

	out, err := s.get(fmt.Sprintf("bytes=%d-%d", off, off+length-1))
	if err != nil {
		return nil, err
	}

	return &rangeBody{
		body:    out.Body,
		limited: io.LimitReader(out.Body, length),
	}, nil
}

// ReadAt implements io.ReaderAt over ranged object reads. Reads crossing
// the end of the object return the available bytes with io.EOF.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}

	want := len(p)
	end := off + int64(want) - 1
	if end >= s.size {
		end = s.size - 1
		want = int(end - off + 1)
	}

	out, err := s.get(fmt.Sprintf("bytes=%d-%d", off, end))
	if err != nil {
		return 0, err
	}
	defer drainClose(out.Body)

	n, err := io.ReadFull(out.Body, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// get issues a ranged GetObject pinned to the captured ETag and version.
func (s *Source) get(rangeSpec string) (*s3.GetObjectOutput, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(rangeSpec),
	}
	if s.etag != "" {
		input.IfMatch = aws.String(s.etag)
	}
	if s.versionID != "" {
		input.VersionId = aws.String(s.versionID)
	}

	out, err := s.client.GetObject(s.ctx, input)
	if err != nil {
		return nil, mapAPIError(err)
	}
	return out, nil
}

// mapAPIError translates service error codes into source semantics.
func mapAPIError(err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return err
	}
	switch ae.ErrorCode() {
	case "PreconditionFailed":
		return ErrContentChanged
	case "InvalidRange":
		return io.EOF
	}
	return err
}

// rangeBody limits reads to the requested range while draining the body
// on close so the connection can be reused.
type rangeBody struct {
	body    io.ReadCloser
	limited io.Reader
}

func (r *rangeBody) Read(p []byte) (int, error) {
	return r.limited.Read(p)
}

func (r *rangeBody) Close() error {
	_, _ = io.Copy(io.Discard, r.body)
	return r.body.Close()
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
