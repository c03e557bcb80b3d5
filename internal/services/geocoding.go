package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"fieldvault/internal/models"
)

// Performs reverse geocoding using the OpenStreetMap Nominatim API with
// caching and rate limiting. Used only to annotate GPS mismatch warnings
// with a human-readable place name; every failure is non-fatal.
type GeocodingService struct {
	cache       map[string]string
	cacheMutex  sync.RWMutex
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// Models the subset of Nominatim's response that we care about
// (city/town/village + country).
type nominatimResponse struct {
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Country string `json:"country"`
	} `json:"address"`
}

// Returns a fully configured geocoder with an in-memory cache, a shared
// HTTP client and Nominatim-compliant rate limiting (1 request/sec).
func NewGeocodingService() *GeocodingService {
	return &GeocodingService{
		cache:      make(map[string]string),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(
			rate.Limit(1), // 1 request/sec
			1,             // burst size
		),
	}
}

// ReverseGeocode performs a coordinate→place lookup: check the cache,
// apply rate limiting, call the API, extract city/town/village + country,
// cache and return the formatted result.
func (g *GeocodingService) ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error) {
	if !coord.Valid() {
		return "", fmt.Errorf("invalid coordinate")
	}

	// Key rounded to avoid cache fragmentation
	key := fmt.Sprintf("%.4f,%.4f", coord.Lat, coord.Lng)

	// First check: read lock
	g.cacheMutex.RLock()
	if cached := g.cache[key]; cached != "" {
		g.cacheMutex.RUnlock()
		return cached, nil
	}
	g.cacheMutex.RUnlock()

	// Rate limit before making API call
	if err := g.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := g.fetchPlace(ctx, coord.Lat, coord.Lng)
	if err != nil {
		return "", err
	}

	// Double-check cache before writing (another goroutine might have set it)
	g.cacheMutex.Lock()
	if cached := g.cache[key]; cached != "" {
		g.cacheMutex.Unlock()
		return cached, nil
	}
	g.cache[key] = result
	g.cacheMutex.Unlock()

	return result, nil
}

// Performs the actual HTTP request and parses the response.
func (g *GeocodingService) fetchPlace(ctx context.Context, lat, lng float64) (string, error) {
	url := fmt.Sprintf(
		"https://nominatim.openstreetmap.org/reverse?format=json&lat=%f&lon=%f&zoom=18&addressdetails=1",
		lat, lng,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", "fieldvault")
	req.Header.Set("Accept-Language", "en")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var data nominatimResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", err
	}

	return extractPlace(data), nil
}

// Chooses the most specific available place from the response.
func extractPlace(n nominatimResponse) string {
	city := firstNonEmpty(
		n.Address.City,
		n.Address.Town,
		n.Address.Village,
	)
	country := n.Address.Country

	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	default:
		return country
	}
}

// Returns the first non-empty string in the list.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
