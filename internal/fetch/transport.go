package fetch

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// Transport default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 10
	DefaultUserAgent    = "goscrape/1.0"
)

// Transport fetches one URL and returns its body. Implementations decide
// the failure kind at this boundary: transport-level faults are
// Transient, protocol-level error responses are Definitive.
type Transport interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// TransportOptions configures the HTTP transport. The engine passes these
// through opaquely.
type TransportOptions struct {
	// Timeout bounds one request attempt.
	Timeout time.Duration
	// MaxRedirects limits redirect following.
	MaxRedirects int
	// UserAgent is sent with every request.
	UserAgent string
	// Headers are additional headers sent with every request.
	Headers map[string]string
}

// HTTPTransport implements Transport with a resty client.
type HTTPTransport struct {
	client *resty.Client
}

// NewHTTPTransport creates an HTTP transport from the given options.
func NewHTTPTransport(opts TransportOptions) *HTTPTransport {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects)).
		SetHeader("User-Agent", opts.UserAgent)

	for k, v := range opts.Headers {
		client.SetHeader(k, v)
	}

	return &HTTPTransport{client: client}
}

// Fetch performs one GET request. A client-side failure is Transient; a
// non-2xx response is Definitive with its status code.
func (t *HTTPTransport) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := t.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", &Error{Kind: KindTransient, URL: url, Err: err}
	}

	if resp.IsError() {
		return "", &Error{Kind: KindDefinitive, URL: url, Status: resp.StatusCode()}
	}

	return resp.String(), nil
}
