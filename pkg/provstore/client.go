package provstore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/provstore/provstore_sdk_go/internal/httpx"
)

// Backend performs the remote operations behind a Document. The HTTP
// backend talks to a ProvStore server; mock.Mock is an in-memory stand-in.
type Backend interface {
	PostDocument(ctx context.Context, doc *DocumentPost) (int64, error)
	GetDocumentProv(ctx context.Context, id int64, format string) ([]byte, error)
	GetDocumentMeta(ctx context.Context, id int64) (*DocumentMeta, error)
	AddBundle(ctx context.Context, id int64, identifier string, body []byte, format string) error
	GetBundles(ctx context.Context, id int64) ([]BundleMeta, error)
	GetBundleProv(ctx context.Context, id, bundleID int64, format string) ([]byte, error)
	DeleteDocument(ctx context.Context, id int64) error
}

// Client holds the shared configuration every Document handle refers to.
// It is immutable after New and safe for concurrent use.
type Client struct {
	config  Config
	backend Backend
	logger  hclog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger   hclog.Logger
	backend  Backend
	httpOpts []httpx.Option
}

// WithLogger sets the logger used by the client and its transport.
func WithLogger(l hclog.Logger) Option {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBackend replaces the HTTP backend, e.g. with mock.New().
func WithBackend(b Backend) Option {
	return func(o *clientOptions) {
		o.backend = b
	}
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(o *clientOptions) {
		o.httpOpts = append(o.httpOpts, httpx.WithHTTPClient(h))
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *clientOptions) {
		o.httpOpts = append(o.httpOpts, httpx.WithRetryPolicy(p))
	}
}

// WithRateLimiter throttles every outgoing attempt through l.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(o *clientOptions) {
		o.httpOpts = append(o.httpOpts, httpx.WithRateLimiter(l))
	}
}

// New constructs a Client. Missing credentials are read from the
// environment once, here.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := clientOptions{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("provstore: invalid config: %w", err)
	}

	logger := o.logger.Named("provstore")
	backend := o.backend
	if backend == nil {
		httpOpts := append([]httpx.Option{
			httpx.WithHeaders(cfg.Headers()),
			httpx.WithLogger(logger),
		}, o.httpOpts...)
		cl, err := httpx.NewClient(cfg.BaseURL, httpOpts...)
		if err != nil {
			return nil, err
		}
		backend = &httpBackend{client: cl}
	}

	logger.Debug("client configured", "base_url", cfg.BaseURL, "authenticated", cfg.HasCredentials())
	return &Client{config: cfg, backend: backend, logger: logger}, nil
}

// NewWithBackend builds a Client for the default configuration around b.
func NewWithBackend(b Backend, opts ...Option) (*Client, error) {
	return New(Config{}, append(opts, WithBackend(b))...)
}

// Config returns the resolved configuration.
func (c *Client) Config() Config {
	return c.config
}

// Document returns a new abstract document handle bound to this client.
func (c *Client) Document() *Document {
	return &Document{client: c}
}

// Equal reports whether both clients target the same store.
func (c *Client) Equal(other *Client) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.config.Equal(other.config)
}
