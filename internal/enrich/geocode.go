package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const defaultGeocoderURL = "https://nominatim.openstreetmap.org"

// Geocoder turns a street address into coordinates via a Nominatim-style
// endpoint. Results are cached for the run; the same venue address shows up
// on dozens of course pages. Every enrichment worker shares one Geocoder,
// so the cache is guarded.
type Geocoder struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string][2]float64
}

func NewGeocoder(baseURL string, logger *slog.Logger) *Geocoder {
	if baseURL == "" {
		baseURL = defaultGeocoderURL
	}
	return &Geocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		cache:   make(map[string][2]float64),
	}
}

func (g *Geocoder) Geocode(ctx context.Context, address string) (*float64, *float64, error) {
	g.mu.Lock()
	hit, ok := g.cache[address]
	g.mu.Unlock()
	if ok {
		lat, lng := hit[0], hit[1]
		return &lat, &lng, nil
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", address)

	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", "kidsource/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, nil, fmt.Errorf("failed to decode geocoder response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil, fmt.Errorf("no geocoder match for %q", address)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, nil, err
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, nil, err
	}

	g.mu.Lock()
	g.cache[address] = [2]float64{lat, lng}
	g.mu.Unlock()
	g.logger.Debug("Geocoded address", "address", address, "lat", lat, "lng", lng)
	return &lat, &lng, nil
}
