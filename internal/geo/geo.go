// Package geo resolves free-text places to coordinates and measures distances
// between them.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"
)

const earthRadiusKM = 6371.0

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// HaversineKM returns the great-circle distance between a and b in kilometres.
func HaversineKM(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Geocoder turns a place name into a coordinate. ok is false when the place is unknown.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (p Point, ok bool, err error)
}

// Client talks to a Nominatim-compatible search endpoint.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	UserAgent string
}

func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		BaseURL:   strings.TrimSpace(baseURL),
		UserAgent: strings.TrimSpace(userAgent),
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (c *Client) Geocode(ctx context.Context, query string) (Point, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Point{}, false, nil
	}

	endpoint, err := searchEndpoint(c.BaseURL, query)
	if err != nil {
		return Point{}, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Point{}, false, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Point{}, false, fbErrors.Wrap(err, "geocode request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return Point{}, false, fbErrors.Transient(fmt.Sprintf("geocode request failed: %s", resp.Status))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Point{}, false, fmt.Errorf("geocode request failed: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Point{}, false, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return Point{}, false, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return Point{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("parse longitude: %w", err)
	}
	return Point{Lat: lat, Lon: lon}, true, nil
}

func searchEndpoint(baseURL, query string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid geocode endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid geocode endpoint %q", baseURL)
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/search"
	q := parsed.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
