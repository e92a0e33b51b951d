package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/config"
)

const defaultLookupTimeout = 2 * time.Second

// localLocation is returned for private and loopback ranges without touching
// the external provider.
var localLocation = port.GeoLocation{
	City:    "Localhost",
	Country: "Local Network",
}

// Client resolves network addresses against an ip-api style JSON endpoint.
// Lookups are bounded by the configured timeout; callers treat any failure
// as a degraded result, never as a login blocker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient constructs a geolocation client from configuration.
func NewClient(cfg config.GeoIPSettings, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		logger:     logger,
	}
}

type providerResponse struct {
	Status     string  `json:"status"`
	Message    string  `json:"message"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Timezone   string  `json:"timezone"`
}

// Lookup resolves the address to a coarse location. Private and loopback
// addresses short-circuit to a fixed local result.
func (c *Client) Lookup(ctx context.Context, ipAddress string) (*port.GeoLocation, error) {
	parsed := net.ParseIP(ipAddress)
	if parsed == nil {
		return nil, fmt.Errorf("%w: invalid address %q", port.ErrLocationNotFound, ipAddress)
	}

	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() {
		local := localLocation
		return &local, nil
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(ipAddress))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query geolocation provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation provider returned status %d", resp.StatusCode)
	}

	var payload providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geolocation response: %w", err)
	}

	if payload.Status != "success" {
		return nil, fmt.Errorf("%w: %s", port.ErrLocationNotFound, payload.Message)
	}

	return &port.GeoLocation{
		City:      payload.City,
		Region:    payload.RegionName,
		Country:   payload.Country,
		Latitude:  payload.Lat,
		Longitude: payload.Lon,
		Timezone:  payload.Timezone,
	}, nil
}

var _ port.GeoLocator = (*Client)(nil)
