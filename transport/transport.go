// Package transport issues the actual network requests behind cached
// operations. The cache core never calls it; operations do, through a
// FetchFunc built with Request.
//
// Routes follow the "METHOD /path/:param" convention of the fingerprint
// codec. Path parameters are substituted from the payload and stripped from
// the forwarded request; the remaining payload travels as query parameters
// for bodyless methods or as a JSON body otherwise.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	onequery "github.com/lifeomic/one-query"
)

// Result is one opaque transport outcome. The core never interprets it;
// status classification is the caller's business.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Doer abstracts *http.Client for testing.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options tune an HTTP transport. Only BaseURL is required.
type Options struct {
	// Required
	BaseURL string

	HTTPClient Doer            // nil => http.DefaultClient
	Logger     onequery.Logger // nil => NopLogger
	Header     http.Header     // static headers added to every request (auth etc.)
}

// Client issues route-addressed HTTP requests. It owns no retry, timeout or
// cancellation policy; configure those on the HTTP client and the context.
type Client struct {
	base   *url.URL
	httpc  Doer
	log    onequery.Logger
	header http.Header
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("transport: base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid base URL: %w", err)
	}

	c := &Client{base: base, header: opts.Header}
	c.httpc = opts.HTTPClient
	if c.httpc == nil {
		c.httpc = http.DefaultClient
	}
	c.log = opts.Logger
	if c.log == nil {
		c.log = onequery.NopLogger{}
	}
	return c, nil
}

// Issue performs one request for (route, payload) and returns whatever came
// back. Errors are transport failures only; HTTP error statuses arrive as
// ordinary Results.
func (c *Client) Issue(ctx context.Context, routeStr string, payload onequery.Payload) (*Result, error) {
	rt, err := parseRoute(routeStr)
	if err != nil {
		return nil, err
	}
	path, used, err := rt.expand(payload)
	if err != nil {
		return nil, err
	}
	rest := strip(payload, used)

	// expand returns the path with each substituted segment already
	// escaped. URL.String escapes u.Path a second time unless RawPath is
	// set, so carry the escaped form in RawPath and its decoded form in
	// Path.
	u := *c.base
	u.RawPath = strings.TrimSuffix(u.EscapedPath(), "/") + path
	decoded, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid path %q: %w", u.RawPath, err)
	}
	u.Path = decoded

	var body io.Reader
	if bodyless(rt.method) {
		if len(rest) > 0 {
			q := u.Query()
			for k, v := range rest {
				q.Set(k, paramString(v))
			}
			u.RawQuery = q.Encode()
		}
	} else if rest != nil {
		b, err := json.Marshal(rest)
		if err != nil {
			return nil, fmt.Errorf("transport: encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, rt.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.log.Debug("request issued", onequery.Fields{
		"route":  routeStr,
		"status": resp.StatusCode,
	})
	return &Result{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

func bodyless(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	}
	return false
}

// HTTPError is returned by Request-built fetchers for non-2xx statuses.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("transport: unexpected status %d", e.StatusCode)
}

// Request builds a FetchFunc for one (route, payload) pair: issue the
// request, require a 2xx, decode the JSON body into V. Pair it with
// onequery.NewOperation to get a combinable, refetchable handle.
func Request[V any](c *Client, route string, payload onequery.Payload) onequery.FetchFunc[V] {
	return func(ctx context.Context) (V, error) {
		var zero V
		res, err := c.Issue(ctx, route, payload)
		if err != nil {
			return zero, err
		}
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return zero, &HTTPError{StatusCode: res.StatusCode, Body: res.Body}
		}
		var v V
		if len(res.Body) > 0 {
			if err := json.Unmarshal(res.Body, &v); err != nil {
				return zero, fmt.Errorf("transport: decode response: %w", err)
			}
		}
		return v, nil
	}
}
