// Package httpclient is the configured request pipeline every JSON call of
// the client goes through: base URL, timeout, cookie jar and ordered
// request/response interceptors.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/model/response"
)

// DefaultTimeout bounds ordinary requests.
const DefaultTimeout = 60 * time.Second

// RequestHook runs before a request is sent. Returning an error aborts it.
type RequestHook func(req *http.Request) error

// ResponseHook runs on a successful (2xx) response.
type ResponseHook func(resp *Response) (*Response, error)

// ErrorHook runs on a failed request. It may recover by returning a
// response and a nil error.
type ErrorHook func(err error) (*Response, error)

type responseStage struct {
	onFulfilled ResponseHook
	onRejected  ErrorHook
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// Jar defaults to an in-memory jar using the public suffix list.
	Jar http.CookieJar
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client sends JSON requests relative to a base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger

	mu       sync.RWMutex
	requests []RequestHook
	stages   []responseStage
}

// New builds a Client from opts.
func New(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	jar := opts.Jar
	if jar == nil {
		j, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, errors.Wrap(err, "create cookie jar")
		}
		jar = j
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: opts.Transport,
		},
		logger: logging.Component("http"),
	}, nil
}

// UseRequest registers an outgoing interceptor. Interceptors run in
// registration order.
func (c *Client) UseRequest(hook RequestHook) {
	if hook == nil {
		return
	}
	c.mu.Lock()
	c.requests = append(c.requests, hook)
	c.mu.Unlock()
}

// UseResponse registers an incoming interceptor stage. Either hook may be
// nil.
func (c *Client) UseResponse(onFulfilled ResponseHook, onRejected ErrorHook) {
	if onFulfilled == nil && onRejected == nil {
		return
	}
	c.mu.Lock()
	c.stages = append(c.stages, responseStage{onFulfilled: onFulfilled, onRejected: onRejected})
	c.mu.Unlock()
}

// BaseURL returns the base URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL joins path onto the base URL.
func (c *Client) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Jar returns the cookie jar shared by every request of this client.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// StreamingClient returns an http.Client sharing the jar and transport but
// without a timeout, for long lived responses.
func (c *Client) StreamingClient() *http.Client {
	return &http.Client{Jar: c.http.Jar, Transport: c.http.Transport}
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post sends a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do builds and sends a request. A nil body sends no payload.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ResolveURL(path), reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.Send(req)
}

// Send runs req through the interceptor pipeline.
func (c *Client) Send(req *http.Request) (*Response, error) {
	c.mu.RLock()
	requests := append([]RequestHook(nil), c.requests...)
	stages := append([]responseStage(nil), c.stages...)
	c.mu.RUnlock()

	var (
		resp *Response
		err  error
	)
	for _, hook := range requests {
		if err = hook(req); err != nil {
			err = errors.Wrap(err, "request interceptor")
			break
		}
	}
	if err == nil {
		resp, err = c.roundTrip(req)
	}

	for _, stage := range stages {
		if err == nil {
			if stage.onFulfilled != nil {
				resp, err = stage.onFulfilled(resp)
			}
			continue
		}
		if stage.onRejected != nil {
			resp, err = stage.onRejected(err)
		}
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) roundTrip(req *http.Request) (*Response, error) {
	started := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", req.Method).Str("url", req.URL.Redacted()).Msg("request failed")
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read response body of %s %s", req.Method, req.URL.Path)
	}

	resp := &Response{
		Request:    req,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}
	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp)
	}
	return resp, nil
}

// Response is a fully read HTTP response.
type Response struct {
	Request    *http.Request
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Envelope decodes the body as an envelope without decoding its payload.
func (r *Response) Envelope() (response.Raw, error) {
	var env response.Raw
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return env, errors.Wrap(err, "decode response envelope")
	}
	return env, nil
}

// Decode decodes resp's body as an envelope carrying T.
func Decode[T any](resp *Response) (response.BaseResponse[T], error) {
	var env response.BaseResponse[T]
	if resp == nil {
		return env, errors.New("decode response: nil response")
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return env, errors.Wrap(err, "decode response envelope")
	}
	return env, nil
}
