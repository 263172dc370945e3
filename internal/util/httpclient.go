// Package util provides the shared HTTP client, the page fetcher and logging helpers
package util

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
)

// UserAgent is the desktop browser the fetcher pretends to be
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var (
	sharedClient     *http.Client
	sharedClientOnce sync.Once
)

// httpClientConfig holds configuration for creating HTTP clients
type httpClientConfig struct {
	timeout             time.Duration
	maxIdleConns        int
	maxIdleConnsPerHost int
	maxConnsPerHost     int
	idleConnTimeout     time.Duration
	tlsHandshakeTimeout time.Duration
	expectContinue      time.Duration
	keepAlive           time.Duration
	dialTimeout         time.Duration
}

// defaultConfig returns the default pool configuration
func defaultConfig() httpClientConfig {
	return httpClientConfig{
		timeout:             30 * time.Second,
		maxIdleConns:        100,
		maxIdleConnsPerHost: 10,
		maxConnsPerHost:     20,
		idleConnTimeout:     90 * time.Second,
		tlsHandshakeTimeout: 5 * time.Second,
		expectContinue:      1 * time.Second,
		keepAlive:           30 * time.Second,
		dialTimeout:         5 * time.Second,
	}
}

// createTransport creates an HTTP transport with the given config
func createTransport(cfg httpClientConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.dialTimeout,
			KeepAlive: cfg.keepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.maxIdleConns,
		MaxIdleConnsPerHost:   cfg.maxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.maxConnsPerHost,
		IdleConnTimeout:       cfg.idleConnTimeout,
		TLSHandshakeTimeout:   cfg.tlsHandshakeTimeout,
		ExpectContinueTimeout: cfg.expectContinue,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// GetSharedClient returns the shared HTTP client with connection pooling.
func GetSharedClient() *http.Client {
	sharedClientOnce.Do(func() {
		sharedClient = NewHTTPClient(0)
	})
	return sharedClient
}

// NewHTTPClient builds a pooled client. A non-positive timeout keeps the default.
func NewHTTPClient(timeout time.Duration) *http.Client {
	cfg := defaultConfig()
	if timeout > 0 {
		cfg.timeout = timeout
	}
	return &http.Client{
		Transport: createTransport(cfg),
		Timeout:   cfg.timeout,
	}
}

// browserHeaders are sent on every request unless overridden per call
var browserHeaders = [][2]string{
	{"User-Agent", UserAgent},
	{"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"},
	{"Accept-Language", "en-US,en;q=0.5"},
	{"Accept-Encoding", "gzip, deflate"},
	{"Connection", "keep-alive"},
	{"Upgrade-Insecure-Requests", "1"},
}

// TransportError is returned when a request fails on the network or
// the server answers with a non-2xx status. StatusCode is 0 when no
// response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP error! status: %d (%s)", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FetchOption customizes a single Fetch call
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	headers http.Header
}

// WithHeader overrides (or adds) a request header for one call
func WithHeader(key, value string) FetchOption {
	return func(o *fetchOptions) {
		o.headers.Set(key, value)
	}
}

// Fetcher issues GET requests with browser-like headers and returns the body as text.
// It never retries; retry policy belongs to the caller.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher on top of client, or on the shared client when nil
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = GetSharedClient()
	}
	return &Fetcher{client: client}
}

// Fetch retrieves rawURL and returns the decoded body
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts ...FetchOption) (string, error) {
	o := fetchOptions{headers: http.Header{}}
	for _, opt := range opts {
		opt(&o)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &TransportError{URL: rawURL, Err: errors.Wrap(err, "failed to create request")}
	}
	for _, h := range browserHeaders {
		req.Header.Set(h[0], h[1])
	}
	for key, values := range o.headers {
		req.Header[key] = values
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", &TransportError{URL: rawURL, Err: errors.Wrap(err, "failed to make request")}
	}
	defer func() { _ = resp.Body.Close() }()

	Debug("Fetched page", "url", rawURL, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        errors.Errorf("server returned: %s", resp.Status),
		}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return "", &TransportError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", &TransportError{URL: rawURL, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "failed to read response")}
	}
	return string(data), nil
}

// decodedBody reads the converted text and closes the decompressor.
// The response body itself is closed by the caller.
type decodedBody struct {
	io.Reader
	decoder io.Closer
}

func (b decodedBody) Close() error {
	if b.decoder == nil {
		return nil
	}
	return b.decoder.Close()
}

// decodeBody undoes the content encodings we advertise and converts the
// declared charset to UTF-8. Net/http stops decompressing transparently
// once Accept-Encoding is set by hand.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	var r io.Reader = resp.Body
	var decoder io.Closer

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open gzip body")
		}
		r, decoder = gz, gz
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open deflate body")
		}
		r, decoder = zr, zr
	}

	return decodedBody{Reader: toUTF8(r, resp.Header.Get("Content-Type")), decoder: decoder}, nil
}

func toUTF8(r io.Reader, contentType string) io.Reader {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r
	}
	label := strings.ToLower(strings.TrimSpace(params["charset"]))
	if label == "" || label == "utf-8" || label == "utf8" {
		return r
	}
	cr, err := charset.NewReaderLabel(label, r)
	if err != nil {
		Debug("Unknown response charset, passing body through", "charset", label)
		return r
	}
	return cr
}

// ParallelExecute executes multiple functions in parallel with a worker limit
// Returns when all functions complete. Safe for concurrent use.
func ParallelExecute(maxWorkers int, tasks ...func()) {
	if len(tasks) == 0 {
		return
	}

	workers := maxWorkers
	if workers <= 0 || len(tasks) < workers {
		workers = len(tasks)
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for _, task := range tasks {
		task := task
		wg.Add(1)
		go func() {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release
			task()
		}()
	}

	wg.Wait()
}
