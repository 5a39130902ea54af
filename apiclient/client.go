// Package apiclient calls the studio backend on behalf of a browser session. It attaches the
// session's bearer token, guards large integer ids before decoding and turns 401/403 responses
// into authentication events.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/studio-gateway/events"
	"github.com/jrsteele09/studio-gateway/internal/tsid"
	"github.com/rs/zerolog/log"
)

const (
	HeaderAuthorization  = "Authorization"
	HeaderOrganizationID = "X-Organization-ID"

	maxResponseBytes = 10 << 20
)

// Credentials are what the client attaches to an outgoing request.
type Credentials struct {
	SessionID      string
	AccessToken    string
	OrganizationID tsid.ID
}

// SessionSource supplies the credentials of the session bound to ctx.
type SessionSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// RequestObserver is notified of every completed backend round trip.
type RequestObserver interface {
	ObserveBackendRequest(method string, status int, elapsed time.Duration)
}

// Client is the backend REST client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	source     SessionSource
	dispatcher events.Dispatcher
	observer   RequestObserver
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithSessionSource(s SessionSource) Option {
	return func(cl *Client) {
		cl.source = s
	}
}

func WithDispatcher(d events.Dispatcher) Option {
	return func(cl *Client) {
		cl.dispatcher = d
	}
}

func WithObserver(o RequestObserver) Option {
	return func(cl *Client) {
		cl.observer = o
	}
}

// New creates a client for the API rooted at baseURL (for example http://api:8081/api/v1).
// timeout bounds every backend call.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestOptions struct {
	skipAuthRedirect bool
	noAuth           bool
	header           http.Header
}

type RequestOption func(*requestOptions)

// SkipAuthRedirect makes a 401 reject the call without raising the unauthorized event.
func SkipAuthRedirect() RequestOption {
	return func(o *requestOptions) {
		o.skipAuthRedirect = true
	}
}

// NoAuth sends the request without session credentials.
func NoAuth() RequestOption {
	return func(o *requestOptions) {
		o.noAuth = true
	}
}

// WithHeader adds a request header. An explicit Authorization header is sent unchanged.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.header.Add(key, value)
	}
}

// WithHeaders copies h into the request headers.
func WithHeaders(h http.Header) RequestOption {
	return func(o *requestOptions) {
		for k, vs := range h {
			for _, v := range vs {
				o.header.Add(k, v)
			}
		}
	}
}

// Response is a completed backend call. Body has already passed the large integer guard.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do sends method/path with body encoded as JSON. It returns the response for any status;
// non-2xx statuses also return an *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
		opts = append(opts, WithHeader("Content-Type", "application/json"))
	}
	return c.Send(ctx, method, path, reader, opts...)
}

// Send is Do with a raw body.
func (c *Client) Send(ctx context.Context, method, path string, body io.Reader, opts ...RequestOption) (*Response, error) {
	ro := requestOptions{header: http.Header{}}
	for _, opt := range opts {
		opt(&ro)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend request: %w", err)
	}
	for k, vs := range ro.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	creds := c.attachCredentials(ctx, req, ro)

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return nil, fmt.Errorf("backend request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}
	if c.observer != nil {
		c.observer.ObserveBackendRequest(method, resp.StatusCode, c.now().Sub(start))
	}

	out := &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   raw,
	}
	if isJSON(resp.Header.Get("Content-Type")) {
		out.Body = tsid.QuoteLargeInts(raw)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if !ro.skipAuthRedirect {
			c.publish(ctx, events.EventUnauthorized, creds.SessionID, path, resp.StatusCode)
		}
		return out, errorFromBody(resp.StatusCode, out.Body)
	case resp.StatusCode == http.StatusForbidden:
		c.publish(ctx, events.EventForbidden, creds.SessionID, path, resp.StatusCode)
		return out, errorFromBody(resp.StatusCode, out.Body)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return out, errorFromBody(resp.StatusCode, out.Body)
	}
	return out, nil
}

// isJSON reports whether a Content-Type names a JSON document. Other bodies are relayed byte for byte.
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// attachCredentials sets the bearer and organization headers unless the caller already set
// Authorization or asked for an anonymous call.
func (c *Client) attachCredentials(ctx context.Context, req *http.Request, ro requestOptions) Credentials {
	if c.source == nil {
		return Credentials{}
	}
	creds, err := c.source.Credentials(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("no session credentials for backend request")
		return Credentials{}
	}
	if ro.noAuth || req.Header.Get(HeaderAuthorization) != "" {
		return creds
	}
	if creds.AccessToken != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+creds.AccessToken)
	}
	if !creds.OrganizationID.IsZero() && req.Header.Get(HeaderOrganizationID) == "" {
		req.Header.Set(HeaderOrganizationID, creds.OrganizationID.String())
	}
	return creds
}

func (c *Client) publish(ctx context.Context, t events.EventType, sessionID, path string, status int) {
	if c.dispatcher == nil {
		return
	}
	_ = c.dispatcher.Publish(ctx, events.Event{
		Type:      t,
		SessionID: sessionID,
		Path:      path,
		Status:    status,
		At:        c.now(),
	})
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}
