package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/reasoned-dev/reasoned/internal/cli/session"
)

// LocalBackendURL is where the backend listens during local development
const LocalBackendURL = "http://127.0.0.1:8000"

// Client represents an authenticated HTTP client for the Reasoned API
type Client struct {
	origin     *url.URL
	session    *session.Manager
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a new API client for the server at origin. The session
// manager supplies the bearer token and the base URL override.
func New(origin string, sess *session.Manager, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: scheme and host are required", origin)
	}

	c := &Client{
		origin:     u,
		session:    sess,
		httpClient: newHTTPClient(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newHTTPClient builds a client without an overall timeout. Dial and TLS
// handshake limits come from the transport; long generation requests are
// allowed to run to completion.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Session returns the session manager backing this client
func (c *Client) Session() *session.Manager {
	return c.session
}

// ResolveBaseURL picks the backend base URL: the override when set, the
// local development backend when the origin is a loopback host name, and
// the origin itself otherwise.
func ResolveBaseURL(override string, origin *url.URL) string {
	if o := strings.TrimSpace(override); o != "" {
		return strings.TrimRight(o, "/")
	}

	switch origin.Hostname() {
	case "localhost", "127.0.0.1":
		return LocalBackendURL
	}

	return (&url.URL{Scheme: origin.Scheme, Host: origin.Host}).String()
}

// BaseURL resolves the base URL using the override stored in the session
func (c *Client) BaseURL() (string, error) {
	override, err := c.session.APIBase()
	if err != nil {
		return "", err
	}
	return ResolveBaseURL(override, c.origin), nil
}

// RequestOptions describes an API request. Body may be []byte, string,
// io.Reader, or any value that encodes to JSON.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   any
}

// Request performs an HTTP request against the resolved base URL.
//
// A non-nil error is either *HTTPError (a response with a non-2xx status)
// or *NetworkError (no usable response). Everything else, including
// malformed JSON bodies, comes back as a *Response.
func (c *Client) Request(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	base, err := c.BaseURL()
	if err != nil {
		return nil, err
	}
	fullURL := base + path

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.session.Token()
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	requestID := ulid.Make().String()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("request_id", requestID).
			Str("method", method).
			Str("url", fullURL).
			Msg("Request failed")
		return nil, &NetworkError{Method: method, URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: fullURL, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("url", fullURL).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request completed")

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       normalizeBody(resp.Header.Get("Content-Type"), raw),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Detail:     out.detail(),
			Response:   out,
		}
	}

	return out, nil
}

// encodeBody turns a request body into a reader; nil means no body
func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}
