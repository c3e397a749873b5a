package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	requestTimeout = 5 * time.Second

	// lookups per second against the external service; enrichment is
	// best-effort so there is no reason to let it burst
	lookupsPerSecond = 2
	lookupBurst      = 4
)

// Unknown is the placeholder value used for every field when the
// external lookup fails.
const Unknown = "Unknown"

// Location is the coarse result of a reverse IP lookup.
type Location struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country_name"`
	IP      string `json:"ip"`
}

// returns "City, Region, Country" for display in login history
func (l Location) String() string {
	return fmt.Sprintf("%s, %s, %s", l.City, l.Region, l.Country)
}

// queries an ipapi.co-compatible endpoint for the caller's location
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// creates a geo lookup client for the given base URL
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(lookupsPerSecond), lookupBurst),
	}
}

// returns placeholder values for every field
func placeholder() Location {
	return Location{City: Unknown, Region: Unknown, Country: Unknown, IP: Unknown}
}

// looks up the caller's approximate location. Always returns a usable
// Location: on any failure every field is the Unknown placeholder and
// the error is returned for callers that want to log it.
func (c *Client) Lookup(ctx context.Context) (Location, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return placeholder(), err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/json/", nil)
	if err != nil {
		return placeholder(), err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return placeholder(), err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return placeholder(), fmt.Errorf("geoip lookup returned status %d", resp.StatusCode)
	}

	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return placeholder(), err
	}

	// partial responses still get placeholders field by field
	if loc.City == "" {
		loc.City = Unknown
	}
	if loc.Region == "" {
		loc.Region = Unknown
	}
	if loc.Country == "" {
		loc.Country = Unknown
	}
	if loc.IP == "" {
		loc.IP = Unknown
	}

	return loc, nil
}
