// Package client provides the core HTTP client for apigate
package client

import (
	"crypto/tls"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apigate-dev/apigate/pkg/auth"
	"github.com/apigate-dev/apigate/pkg/config"
	"github.com/apigate-dev/apigate/pkg/errors"
	"github.com/apigate-dev/apigate/pkg/logging"
	"github.com/apigate-dev/apigate/pkg/monitoring"
)

// Client is the request gateway: it owns the resolved configuration and
// a reusable HTTP transport, and exposes the five verb methods. The
// verb methods are safe for concurrent use; Close is not safe to call
// concurrently with in-flight requests.
type Client struct {
	cfg         *config.ClientConfig
	httpClient  *http.Client
	headers     http.Header
	tokenSource auth.TokenSource
	logger      *logging.Logger
	monitor     *monitoring.Monitor

	closeOnce sync.Once
	closed    atomic.Bool
}

// Option defines a function for configuring the client
type Option func(*options)

type options struct {
	cfg         *config.ClientConfig
	baseURL     string
	timeout     time.Duration
	verifyTLS   *bool
	headers     map[string]string
	credential  string
	tokenSource auth.TokenSource
	httpClient  *http.Client
	logger      *logging.Logger
	monitor     *monitoring.Monitor
}

// WithConfig applies a full client configuration. Later options
// override individual fields.
func WithConfig(cfg *config.ClientConfig) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithBaseURL sets the base URL for API requests
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithTimeout sets the per-request timeout. Default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTLSVerify controls TLS certificate verification. Default is true.
func WithTLSVerify(verify bool) Option {
	return func(o *options) {
		o.verifyTLS = &verify
	}
}

// WithHeader adds a default header sent on every request. Caller values
// win over the built-in defaults on key collision.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithHeaders adds multiple default headers sent on every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithCredential sets a static bearer credential, sent as
// "Authorization: Bearer <credential>" on every request.
func WithCredential(credential string) Option {
	return func(o *options) {
		o.credential = credential
	}
}

// WithTokenSource sets a dynamic credential source consulted on every
// request. It takes precedence over WithCredential.
func WithTokenSource(ts auth.TokenSource) Option {
	return func(o *options) {
		o.tokenSource = ts
	}
}

// WithHTTPClient sets a custom HTTP client. Timeout and TLS settings on
// the gateway configuration are not applied to a caller-supplied client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger collaborator. Default discards everything.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMonitor sets the monitoring collaborator for request metrics and
// tracing.
func WithMonitor(monitor *monitoring.Monitor) Option {
	return func(o *options) {
		o.monitor = monitor
	}
}

// New creates a new client instance. The base URL is resolved from
// options, then the configuration, then the API_BASE_URL environment
// variable; when none yields a value New returns a ConfigError before
// any network activity.
func New(opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = &config.DefaultConfig().Client
	}

	// Explicit option > configured value > environment.
	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	if baseURL == "" {
		baseURL = os.Getenv(config.EnvBaseURL)
	}
	if baseURL == "" {
		return nil, errors.NewConfigError(
			"base URL must be provided either directly or through environment variable %q", config.EnvBaseURL)
	}

	timeout := cfg.Timeout
	if o.timeout > 0 {
		timeout = o.timeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	verifyTLS := cfg.VerifyTLS
	if o.verifyTLS != nil {
		verifyTLS = *o.verifyTLS
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("client")

	c := &Client{
		cfg: &config.ClientConfig{
			BaseURL:   strings.TrimRight(baseURL, "/"),
			Timeout:   timeout,
			VerifyTLS: verifyTLS,
			UserAgent: cfg.UserAgent,
		},
		logger:      logger,
		monitor:     o.monitor,
		tokenSource: o.tokenSource,
	}

	if c.tokenSource == nil && o.credential != "" {
		c.tokenSource = auth.NewStaticTokenSource(o.credential)
	}

	c.headers = buildDefaultHeaders(cfg, o.headers)
	if c.cfg.UserAgent != "" && c.headers.Get("User-Agent") == "" {
		c.headers.Set("User-Agent", c.cfg.UserAgent)
	}

	// The configured timeout is enforced per call through a context
	// deadline so a per-call override can extend it as well as shorten
	// it. The http.Client itself carries no timeout.
	c.httpClient = o.httpClient
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: newTransport(verifyTLS),
		}
	}

	c.logger.Info("API client initialized with base URL: %s", c.cfg.BaseURL)

	return c, nil
}

// NewFromConfig creates a client from a full configuration, wiring the
// logger and token source it describes. Additional options may override
// individual fields.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, err
	}

	tokenSource, err := auth.FromConfig(cfg.Auth)
	if err != nil {
		return nil, errors.NewConfigError("invalid auth configuration: %v", err)
	}

	merged := []Option{
		WithConfig(&cfg.Client),
		WithHeaders(cfg.Client.Headers),
		WithLogger(logger),
	}
	if tokenSource != nil {
		merged = append(merged, WithTokenSource(tokenSource))
	}
	merged = append(merged, opts...)

	return New(merged...)
}

// buildDefaultHeaders merges caller-supplied defaults over the built-in
// pair. Caller values win on key collision.
func buildDefaultHeaders(cfg *config.ClientConfig, extra map[string]string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")

	for k, v := range cfg.Headers {
		h.Set(k, v)
	}
	for k, v := range extra {
		h.Set(k, v)
	}
	return h
}

// newTransport builds the gateway's dedicated transport. The transport
// is never shared across gateways.
func newTransport(verifyTLS bool) *http.Transport {
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !verifyTLS {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return t
}

// BaseURL returns the resolved, slash-stripped base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Close releases the transport's underlying resources. It is safe to
// call more than once; repeat calls are no-ops. Verb methods called
// after Close fail fast with ErrClientClosed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.httpClient.CloseIdleConnections()
		c.logger.Info("closing API client session")
	})
}
