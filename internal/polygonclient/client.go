// Package polygonclient talks to the polygon REST API on behalf of a
// polygonstore.Store and the command line tool.
package polygonclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/forestlens/mspo-maps/internal/middleware"
	"golang.org/x/net/publicsuffix"
)

// APIError is a non-2xx reply decoded from the response envelope.
type APIError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("api returned HTTP %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	sessionID  string
}

type Option func(*Client)

// WithHTTPClient replaces the default client. A client without a cookie jar
// is copied and given one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSession reuses an existing session id instead of logging in.
func WithSession(sessionID string) Option {
	return func(c *Client) { c.sessionID = sessionID }
}

// New returns a client for the server at baseURL, e.g. http://localhost:5050.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		hc := *c.httpClient
		hc.Jar = jar
		c.httpClient = &hc
	}
	if c.sessionID != "" {
		c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{{
			Name:  middleware.SessionCookie,
			Value: c.sessionID,
			Path:  "/",
		}})
	}
	return c, nil
}

// Login opens a session; the cookie is kept for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/login", nil, body, nil)
}

// SessionID returns the current session cookie value, if any.
func (c *Client) SessionID() string {
	if c.httpClient.Jar == nil {
		return ""
	}
	for _, ck := range c.httpClient.Jar.Cookies(c.baseURL) {
		if ck.Name == middleware.SessionCookie {
			return ck.Value
		}
	}
	return ""
}

// do sends in as JSON and decodes the envelope's data into out. A nil out
// discards the data.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	raw, err := c.send(ctx, method, path, query, in)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s %s data: %w", method, path, err)
	}
	return nil
}

// send returns the raw body of a 2xx reply.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, in interface{}) ([]byte, error) {
	u := *c.baseURL
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env envelope
		if json.Unmarshal(raw, &env) == nil {
			apiErr.Message = env.Message
			apiErr.Errors = env.Errors
		}
		return nil, apiErr
	}
	return raw, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func decode(raw []byte, into interface{}) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
