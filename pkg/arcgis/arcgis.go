// Package arcgis is a client for ArcGIS-style REST map and feature
// services: directory/service/layer discovery, health probing, and the
// count / ID-enumeration / batch queries used for OID-paginated
// feature downloads.
package arcgis

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to ArcGIS REST endpoints.
type Client interface {
	// DirectoryServices lists the queryable child services of a
	// directory endpoint, sorted case-insensitively by display name.
	DirectoryServices(ctx context.Context, directoryURL string) ([]ServiceEntry, error)

	// ServiceLayers lists the layers of a MapServer or FeatureServer.
	ServiceLayers(ctx context.Context, serviceURL string) ([]LayerRef, error)

	// LayerSchema fetches one layer's field list, geometry type and
	// spatial reference.
	LayerSchema(ctx context.Context, serviceURL string, layerID int) (*LayerSchema, error)

	// Health probes a service with a short timeout. It never returns
	// an error; failures are folded into the Alive flag.
	Health(ctx context.Context, serviceURL string) HealthStatus

	// FeatureCount returns the number of features matching the filter.
	FeatureCount(ctx context.Context, serviceURL string, layerID int, filter Filter) (int, error)

	// ObjectIDs returns the identifier field name and the sorted,
	// deduplicated set of object IDs matching the filter.
	ObjectIDs(ctx context.Context, serviceURL string, layerID int, filter Filter) (string, []int64, error)

	// FetchBatch fetches full features for a range predicate, with the
	// filter re-attached and an optional output spatial reference.
	FetchBatch(ctx context.Context, serviceURL string, layerID int, where string, filter Filter, outWKID int) (*BatchResult, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout for bulk queries.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.timeout = d
	}
}

// WithHealthTimeout sets the timeout used by Health probes.
func WithHealthTimeout(d time.Duration) Option {
	return func(c *client) {
		c.healthTimeout = d
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithTLSVerification enables strict certificate validation.
// Verification is off by default: many county and municipal servers
// ship broken certificate chains, and refusing them would make the
// tool useless against exactly the endpoints it exists for.
func WithTLSVerification(verify bool) Option {
	return func(c *client) {
		c.verifyTLS = verify
	}
}

// WithRateLimit sets the requests-per-second limit toward the servers.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithHealthCache injects an externally-owned health result cache.
func WithHealthCache(cache HealthCache) Option {
	return func(c *client) {
		c.healthCache = cache
	}
}

type client struct {
	httpClient    *http.Client
	timeout       time.Duration
	healthTimeout time.Duration
	userAgent     string
	verifyTLS     bool
	limiter       *rate.Limiter
	healthCache   HealthCache
}

const defaultUserAgent = "geograb/1.0"

// New creates an ArcGIS REST client.
func New(opts ...Option) Client {
	c := &client{
		timeout:       60 * time.Second,
		healthTimeout: 10 * time.Second,
		userAgent:     defaultUserAgent,
		limiter:       rate.NewLimiter(4, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !c.verifyTLS}, //nolint:gosec
			},
		}
	}
	return c
}
