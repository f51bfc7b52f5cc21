package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubGeocoder(t *testing.T) *Geocoder {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"lat":"49.3215","lon":"-123.0724"}]`)
	}))
	t.Cleanup(srv.Close)
	return NewGeocoder(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGeocodeParsesAndCaches(t *testing.T) {
	g := stubGeocoder(t)

	lat, lng, err := g.Geocode(context.Background(), "931 Lytton St, North Vancouver")
	require.NoError(t, err)
	require.NotNil(t, lat)
	require.NotNil(t, lng)
	assert.InDelta(t, 49.3215, *lat, 0.0001)
	assert.InDelta(t, -123.0724, *lng, 0.0001)

	again, _, err := g.Geocode(context.Background(), "931 Lytton St, North Vancouver")
	require.NoError(t, err)
	assert.Equal(t, *lat, *again)
}

// One Geocoder is shared by every enrichment worker; cache access from all
// of them at once must stay safe.
func TestGeocodeConcurrentAccess(t *testing.T) {
	g := stubGeocoder(t)

	addresses := []string{
		"931 Lytton St",
		"851 W Queens Rd",
		"2300 Kirkstone Rd",
		"3625 Banff Ct",
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				lat, lng, err := g.Geocode(context.Background(), addresses[i%len(addresses)])
				assert.NoError(t, err)
				assert.NotNil(t, lat)
				assert.NotNil(t, lng)
			}
		}()
	}
	wg.Wait()
}

func TestGeocodeNoMatchIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	t.Cleanup(srv.Close)
	g := NewGeocoder(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, _, err := g.Geocode(context.Background(), "nowhere at all")
	assert.Error(t, err)
}
