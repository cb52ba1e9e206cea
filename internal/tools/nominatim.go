package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrGeocoderFailed indicates the geocoding service answered with a non-2xx status.
var ErrGeocoderFailed = errors.New("geocoder request failed")

// GeocoderConfig holds Nominatim client settings.
type GeocoderConfig struct {
	BaseURL   string
	RateLimit time.Duration // minimum spacing between requests
	Timeout   time.Duration
	UserAgent string
}

// Geocoder queries a Nominatim /search endpoint, spacing out requests to
// respect the public usage policy.
type Geocoder struct {
	http      *http.Client
	baseURL   string
	limiter   *rate.Limiter
	userAgent string
}

// NewGeocoder creates a Nominatim client.
func NewGeocoder(cfg GeocoderConfig) *Geocoder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "entity-linker"
	}
	return &Geocoder{
		http:      &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		limiter:   rate.NewLimiter(rate.Every(cfg.RateLimit), 1),
		userAgent: cfg.UserAgent,
	}
}

// Address is the compact address part of a geocoding result.
type Address struct {
	HouseNumber string `json:"house_number,omitempty"`
	Road        string `json:"road,omitempty"`
	City        string `json:"city,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Place is the compact geocoding result handed to the model.
type Place struct {
	Query       string   `json:"query"`
	DisplayName string   `json:"display_name"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Importance  float64  `json:"importance,omitempty"`
	PlaceID     int64    `json:"place_id,omitempty"`
	OSMType     string   `json:"osm_type,omitempty"`
	OSMID       int64    `json:"osm_id,omitempty"`
	OSMURL      string   `json:"osm_url,omitempty"`
	Address     Address  `json:"address"`
	BBox        []string `json:"bbox,omitempty"`
	Type        string   `json:"type,omitempty"`
	Class       string   `json:"class,omitempty"`
}

type nominatimResult struct {
	PlaceID     int64             `json:"place_id"`
	OSMType     string            `json:"osm_type"`
	OSMID       int64             `json:"osm_id"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Class       string            `json:"class"`
	Type        string            `json:"type"`
	Importance  float64           `json:"importance"`
	Address     map[string]string `json:"address"`
	BoundingBox []string          `json:"boundingbox"`
}

// Search returns the best match for query narrowed by city and country code,
// or nil when nothing matches.
func (g *Geocoder) Search(ctx context.Context, query, city, country string) (*Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	q := query
	if c := strings.TrimSpace(city); c != "" {
		q += ", " + c
	}
	params := url.Values{
		"q":              {q},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}
	if c := strings.TrimSpace(country); c != "" {
		params.Set("countrycodes", c)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrGeocoderFailed, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return compactPlace(results[0], query), nil
}
