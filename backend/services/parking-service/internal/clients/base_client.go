package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	maxResponseBytes = 1 << 20
	userAgent        = "parking-service"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Response is a fully read upstream reply.
type Response struct {
	Status int
	Body   []byte
}

// ServerError reports a 5xx status.
func (r Response) ServerError() bool {
	return r.Status >= http.StatusInternalServerError
}

// BaseClient talks to one upstream service rooted at baseURL. Transport failures are
// reported as ErrUpstreamUnavailable; HTTP statuses are left to the caller.
type BaseClient struct {
	baseURL string
	client  HTTPDoer
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

// Get fetches path.
func (c *BaseClient) Get(ctx context.Context, path string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return Response{}, err
	}
	return c.send(req)
}

// PostFile uploads data as a single multipart form file.
func (c *BaseClient) PostFile(ctx context.Context, path, field, filename string, data []byte) (Response, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(field, filename)
	if err != nil {
		return Response{}, err
	}
	if _, err := part.Write(data); err != nil {
		return Response{}, err
	}
	if err := form.Close(); err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), &buf)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.send(req)
}

func (c *BaseClient) endpoint(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *BaseClient) send(req *http.Request) (Response, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %s %s: %v", ErrUpstreamUnavailable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{Status: resp.StatusCode}, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}
	return Response{Status: resp.StatusCode, Body: body}, nil
}

// NewHTTPClient returns an *http.Client for a single slow upstream: the overall timeout
// covers inference time, the dial timeout fails fast when the service is down.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	transport.MaxIdleConnsPerHost = 8
	return &http.Client{Timeout: timeout, Transport: transport}
}
