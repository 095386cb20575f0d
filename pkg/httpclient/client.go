package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultIdentityHeader carries the current user id to the API.
	DefaultIdentityHeader = "CurrentUserId"

	contentTypeJSON = "application/json"
)

// Error context strings prefixed to normalized failures, one per verb.
const (
	ContextGet    = "An error occurred while fetching the data.\n"
	ContextPost   = "An error occurred while posting the data.\n"
	ContextPut    = "An error occurred while updating the data.\n"
	ContextDelete = "An error occurred while deleting the data.\n"
)

// Config describes where and how the client talks to the API.
type Config struct {
	BaseURL        string
	DefaultHeaders map[string]string
	IdentityHeader string
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger attaches a logger for request/response tracing.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		c.log = ensureLogger(log)
	}
}

// WithRestyClient swaps the underlying resty client, e.g. to reuse a transport.
func WithRestyClient(rc *resty.Client) Option {
	return func(c *Client) {
		if rc != nil {
			c.http = rc
		}
	}
}

// Client issues JSON requests against the API and normalizes every response.
// It is safe for concurrent use.
type Client struct {
	baseURL        string
	headers        map[string]string
	identityHeader string
	identity       *Identity
	http           *resty.Client
	log            Logger
}

// New builds a Client. A nil identity gets a fresh, empty one.
func New(cfg Config, identity *Identity, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("api base url is empty")
	}
	if identity == nil {
		identity = NewIdentity()
	}

	headers := map[string]string{"Content-Type": contentTypeJSON}
	for k, v := range cfg.DefaultHeaders {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		headers[http.CanonicalHeaderKey(key)] = v
	}

	identityHeader := strings.TrimSpace(cfg.IdentityHeader)
	if identityHeader == "" {
		identityHeader = DefaultIdentityHeader
	}

	c := &Client{
		baseURL:        base,
		headers:        headers,
		identityHeader: identityHeader,
		identity:       identity,
		http:           newRestyBaseClient(0),
		log:            noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured API address.
func (c *Client) BaseURL() string { return c.baseURL }

// Identity returns the identity shared with this client.
func (c *Client) Identity() *Identity { return c.identity }

// SetCurrentIdentity sets the identity header for future requests. An empty id clears it.
func (c *Client) SetCurrentIdentity(id string) {
	c.identity.Set(id)
	c.log.DebugObj("current identity updated", "identity", map[string]any{
		"set": id != "",
		"id":  id,
	})
}

// requestHeaders snapshots default headers plus the identity header, if any.
func (c *Client) requestHeaders() map[string]string {
	out := make(map[string]string, len(c.headers)+1)
	for k, v := range c.headers {
		out[k] = v
	}
	if id, ok := c.identity.Get(); ok {
		out[c.identityHeader] = id
	}
	return out
}

// Do performs one exchange and returns its normalized Result. The error return is
// reserved for encode and transport failures; transport errors are returned as-is.
func (c *Client) Do(ctx context.Context, method, path string, body any, errContext string) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	url := c.baseURL + path

	req := c.http.R().
		SetContext(ctx).
		SetHeaders(c.requestHeaders())

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Result{}, fmt.Errorf("encode request body: %w", err)
		}
		req.SetBody(payload)
	}

	c.log.DebugObj("api request", "api_request", map[string]any{
		"method": method,
		"url":    url,
	})

	resp, err := req.Execute(method, url)
	if err != nil {
		c.log.ErrorObj("api request failed", "api_transport_error", map[string]any{
			"method": method,
			"url":    url,
			"error":  err.Error(),
		})
		return Result{}, err
	}

	res := normalize(resp, errContext)
	c.log.DebugObj("api response", "api_response", map[string]any{
		"method":  method,
		"url":     url,
		"status":  resp.StatusCode(),
		"outcome": res.Kind.String(),
	})
	if res.Kind == KindError {
		c.log.WarnObj("api error response", "api_error", res.Err)
	}
	return res, nil
}
