// Package http provides an archive byte source backed by HTTP range
// requests, so archives on object stores and CDNs can be read without
// downloading them whole.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
)

// ErrRangeUnsupported reports a remote that answers range requests with
// the full representation instead of partial content.
var ErrRangeUnsupported = errors.New("zipkit/http: server does not support range requests")

// ErrContentChanged reports that the remote content no longer matches the
// validators captured when the source was created.
var ErrContentChanged = errors.New("zipkit/http: remote content changed")

// errRangeNotSatisfiable maps a 416 response so range callers can convert
// it to io.EOF.
var errRangeNotSatisfiable = errors.New("zipkit/http: requested range not satisfiable")

// Source reads a remote resource through HTTP range requests. It
// satisfies zipkit.ByteSource and zipkit.RangeReader, so archive members
// stream straight from the remote.
//
// Validators captured at probe time (ETag, Last-Modified) ride along on
// every read as If-Match and If-Unmodified-Since preconditions; a read
// against changed content fails with ErrContentChanged instead of
// returning bytes from a different archive.
type Source struct {
	url     string
	ctx     context.Context
	client  *nethttp.Client
	headers nethttp.Header

	size         int64
	etag         string
	lastModified string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(s *Source) {
		if headers == nil {
			return
		}
		s.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// NewSource probes url and returns a range-reading source for it.
//
// The probe prefers HEAD for metadata and confirms range support with a
// one-byte range request. ReadAt carries no context of its own, so ctx
// applies to the probe and to every later read from this source.
func NewSource(ctx context.Context, url string, opts ...Option) (*Source, error) {
	s := &Source{
		url:    url,
		ctx:    ctx,
		client: nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}

	if err := s.probe(); err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	return s, nil
}

// Size returns the total size of the remote content.
func (s *Source) Size() int64 {
	return s.size
}

// ReadRange returns a reader over length bytes starting at off. Ranges
// reaching past the end of the remote are clamped; a range starting at or
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

	resp, err := s.get(fmt.Sprintf("bytes=%d-%d", off, off+length-1))
	if errors.Is(err, errRangeNotSatisfiable) {
		return io.NopCloser(bytes.NewReader(nil)), io.EOF
	}
	if err != nil {
		return nil, err
	}

	return &rangeBody{
		body:    resp.Body,
		limited: io.LimitReader(resp.Body, length),
	}, nil
}

// ReadAt implements io.ReaderAt over HTTP range requests. Reads crossing
// the end of the remote return the available bytes with io.EOF.
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

	resp, err := s.get(fmt.Sprintf("bytes=%d-%d", off, end))
	if errors.Is(err, errRangeNotSatisfiable) {
		return 0, io.EOF
	}
	if err != nil {
		return 0, err
	}
	defer drainClose(resp.Body)

	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// probe determines the remote size and captures validators. HEAD is
// advisory; the range probe is authoritative for the size and proves the
// remote honors range requests at all.
func (s *Source) probe() error {
	headSize := int64(-1)
	if resp, err := s.head(); err == nil {
		headSize = resp.ContentLength
		s.etag = resp.Header.Get("ETag")
		s.lastModified = resp.Header.Get("Last-Modified")
		drainClose(resp.Body)
	}

	resp, err := s.get("bytes=0-0")
	if err != nil {
		return err
	}
	defer drainClose(resp.Body)

	size, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return err
	}
	if headSize > 0 && headSize != size {
		return fmt.Errorf("size mismatch: head %d, range %d", headSize, size)
	}

	if s.etag == "" {
		s.etag = resp.Header.Get("ETag")
	}
	if s.lastModified == "" {
		s.lastModified = resp.Header.Get("Last-Modified")
	}
	s.size = size
	return nil
}

// get executes a GET for the given range spec and requires a
// partial-content response.
func (s *Source) get(rangeSpec string) (*nethttp.Response, error) {
	req, err := s.newRequest(nethttp.MethodGet)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", rangeSpec)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		return resp, nil
	case nethttp.StatusRequestedRangeNotSatisfiable:
		drainClose(resp.Body)
		return nil, errRangeNotSatisfiable
	case nethttp.StatusOK:
		drainClose(resp.Body)
		return nil, ErrRangeUnsupported
	case nethttp.StatusPreconditionFailed:
		drainClose(resp.Body)
		return nil, ErrContentChanged
	default:
		status := resp.Status
		drainClose(resp.Body)
		return nil, fmt.Errorf("range request failed: %s", status)
	}
}

func (s *Source) head() (*nethttp.Response, error) {
	req, err := s.newRequest(nethttp.MethodHead)
	if err != nil {
		return nil, err
	}
	return s.client.Do(req)
}

func (s *Source) newRequest(method string) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(s.ctx, method, s.url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	// Transparent coding would break byte offsets.
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if method == nethttp.MethodGet {
		if s.etag != "" && req.Header.Get("If-Match") == "" {
			req.Header.Set("If-Match", s.etag)
		}
		if s.lastModified != "" && req.Header.Get("If-Unmodified-Since") == "" {
			req.Header.Set("If-Unmodified-Since", s.lastModified)
		}
	}
	return req, nil
}

// rangeBody limits reads to the requested range while draining the full
// response body on close so the connection can be reused.
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

// parseContentRange extracts the complete length from a Content-Range
// header such as "bytes 0-0/1234".
func parseContentRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("content range %q: unexpected unit", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("content range %q: no complete length", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("content range %q: bad length", value)
	}
	return size, nil
}
