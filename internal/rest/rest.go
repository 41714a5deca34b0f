// Package rest is the one-shot HTTP client for discovery and OAuth calls.
package rest

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestTimeout = 10 * time.Second

// Request is a single HTTP call. ID is an opaque key chosen by the caller so
// several in-flight requests can be told apart on one response stream.
type Request struct {
	ID      string
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response carries the outcome of a Request. A non-2xx status is not an
// error; callers inspect Status. Err is set only for transport failures.
type Response struct {
	ID     string
	Status int
	Body   []byte
	Err    error
}

// Client issues requests asynchronously. The callback runs on an internal
// goroutine; callers marshal it back onto their own tick.
type Client interface {
	Do(req Request, cb func(Response))
}

// NewID returns a fresh opaque request id.
func NewID() string { return uuid.NewString() }

// HTTPClient is the net/http-backed Client.
type HTTPClient struct {
	hc  *http.Client
	log zerolog.Logger
}

// NewHTTPClient creates a client with the standard request timeout.
func NewHTTPClient(log zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		hc:  &http.Client{Timeout: requestTimeout},
		log: log,
	}
}

// Do issues the request on a background goroutine.
func (c *HTTPClient) Do(req Request, cb func(Response)) {
	go func() {
		cb(c.roundTrip(req))
	}()
}

func (c *HTTPClient) roundTrip(req Request) Response {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequest(req.Method, req.URL, body)
	if err != nil {
		return Response{ID: req.ID, Err: err}
	}
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		c.log.Warn().Str("url", req.URL).Err(err).Msg("HTTP request failed")
		return Response{ID: req.ID, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{ID: req.ID, Status: resp.StatusCode, Err: err}
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Msg("HTTP request completed")

	return Response{ID: req.ID, Status: resp.StatusCode, Body: data}
}
