// Package enrich augments tracking events with request-derived context:
// geo location looked up from the client IP and a parsed user agent.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Geo is the location detail attached to tracking events.
type Geo struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

// GeoClient resolves an IP address to a location via an external HTTP
// service. Lookups are best-effort; callers treat failures as "no geo".
type GeoClient struct {
	baseURL string
	http    *http.Client
}

// NewGeoClient creates a geo lookup client. baseURL may be empty, in which
// case every lookup returns nil.
func NewGeoClient(baseURL string) *GeoClient {
	return &GeoClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Lookup resolves ip to a location. Returns nil when the service is not
// configured, the IP is empty, or the lookup fails in a non-error way.
func (c *GeoClient) Lookup(ctx context.Context, ip string) (*Geo, error) {
	if c.baseURL == "" || ip == "" {
		return nil, nil
	}

	u := fmt.Sprintf("%s/v1/ip/geo/%s.json", c.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build geo request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup: unexpected status %d", resp.StatusCode)
	}

	var geo Geo
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return nil, fmt.Errorf("decode geo response: %w", err)
	}
	return &geo, nil
}
