package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds HTTP client configuration
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	DefaultHeaders map[string]string

	// CallbackParam is the query parameter GetJSON names its JSONP callback
	// with. Empty disables the parameter; plain JSON bodies are always accepted.
	CallbackParam string
}

// DefaultConfig returns a default HTTP client configuration
func DefaultConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		MaxRetries:     0,
		RetryDelay:     time.Second,
		DefaultHeaders: make(map[string]string),
		CallbackParam:  "callback",
	}
}

// Client wraps http.Client with common functionality
type Client struct {
	httpClient *http.Client
	config     *Config
}

// New creates a new HTTP client with the given configuration
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// Request represents an HTTP request
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
}

// Response represents an HTTP response with convenience methods
type Response struct {
	*http.Response
	BodyBytes []byte
}

// SafeClose safely closes the response body
func (r *Response) SafeClose() error {
	if r.Response == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Do performs an HTTP request with the configured retries. A final error status
// is returned together with its response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error
	var lastResp *Response

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		resp, err := c.doSingle(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if lastResp != nil {
			_ = lastResp.SafeClose()
		}
		lastResp = resp

		// Don't retry on context cancellation or client errors (4xx)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return resp, err
		}
	}

	if c.config.MaxRetries == 0 {
		return lastResp, lastErr
	}
	return lastResp, fmt.Errorf("request failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// doSingle performs a single HTTP request
func (c *Client) doSingle(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		_ = httpResp.Body.Close()
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{
		Response:  httpResp,
		BodyBytes: bodyBytes,
	}

	if httpResp.StatusCode >= 400 {
		err = fmt.Errorf("HTTP %d - %s", httpResp.StatusCode, string(bodyBytes))
	}

	return resp, err
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodGet,
		URL:     url,
		Headers: headers,
	})
}

// GetJSON fetches rawURL and decodes the JSON payload into v. JSONP bodies
// (name({...});) are unwrapped when they call the callback this request named.
// A body that decodes is accepted whatever the HTTP status, since the payload
// reports its own status; otherwise the request error is returned.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v interface{}) error {
	callback := ""
	if c.config.CallbackParam != "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
		callback = NewCallbackName()
		q := u.Query()
		q.Set(c.config.CallbackParam, callback)
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}

	resp, err := c.Get(ctx, rawURL, map[string]string{"Accept": "application/json, application/javascript"})
	if resp == nil {
		return err
	}
	defer func() { _ = resp.SafeClose() }()

	if decodeErr := decodePayload(resp.BodyBytes, callback, v); decodeErr != nil {
		if err != nil {
			return err
		}
		return decodeErr
	}
	return nil
}

func decodePayload(body []byte, callback string, v interface{}) error {
	payload, err := UnwrapJSONP(body, callback)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// NewCallbackName returns a fresh JSONP callback name
func NewCallbackName() string {
	return "jsonp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

var jsonpPattern = regexp.MustCompile(`(?s)^(?:/\*\*/)?\s*([A-Za-z_$][\w$.]*)\s*\((.*)\)\s*;?$`)

// UnwrapJSONP returns the JSON payload of body. Plain JSON is returned as is; a
// JSONP wrapper must call callback, or any function when callback is empty.
func UnwrapJSONP(body []byte, callback string) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed, nil
	}

	m := jsonpPattern.FindSubmatch(trimmed)
	if m == nil {
		return nil, fmt.Errorf("response is neither JSON nor JSONP")
	}
	if callback != "" && string(m[1]) != callback {
		return nil, fmt.Errorf("JSONP callback mismatch: expected %s, got %s", callback, m[1])
	}
	return bytes.TrimSpace(m[2]), nil
}
