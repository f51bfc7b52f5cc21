// Package source scrapes the provider's server-rendered facilities page to
// seed the locations table before a browser run, so venue resolution hits
// pre-populated rows instead of minting duplicates from listing text.
package source

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"github.com/shanehull/kidsource/internal/model"
)

type DirectoryScraper struct {
	logger   *slog.Logger
	startURL string
	domains  []string
}

func NewDirectoryScraper(logger *slog.Logger, startURL string, domains ...string) *DirectoryScraper {
	return &DirectoryScraper{logger: logger, startURL: startURL, domains: domains}
}

func (s *DirectoryScraper) Name() string { return "FacilityDirectory" }

// Fetch harvests venue name and address pairs. Unlike the listing widget,
// the facilities page is plain server-side HTML, so a plain collector does.
func (s *DirectoryScraper) Fetch(ctx context.Context) ([]model.Location, error) {
	var locs []model.Location
	seen := make(map[string]bool)

	c := colly.NewCollector(
		colly.AllowedDomains(s.domains...),
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"),
	)

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       1 * time.Second,
	})

	c.OnHTML(".facility-card, .views-row", func(e *colly.HTMLElement) {
		name := strings.TrimSpace(e.ChildText("h3 a, h3, .facility-title"))
		address := strings.TrimSpace(e.ChildText(".facility-address, .address"))

		// Navigation teasers render in the same row class; a venue entry
		// always carries a name and usually an address.
		if len(name) < 3 || seen[name] {
			return
		}
		seen[name] = true
		locs = append(locs, model.Location{
			ID:             uuid.NewString(),
			Name:           name,
			NormalizedName: model.NormalizeVenueName(name),
			Address:        address,
			FacilityType:   model.InferFacilityType(name),
		})
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		s.logger.Error("Directory fetch error", "url", r.Request.URL, "err", err)
		scrapeErr = err
	})

	s.logger.Info("Fetching facility directory", "url", s.startURL)
	if err := c.Visit(s.startURL); err != nil {
		return nil, err
	}
	c.Wait()

	if scrapeErr != nil && len(locs) == 0 {
		return nil, scrapeErr
	}
	if len(locs) == 0 {
		s.logger.Warn("Facility directory yielded 0 venues; resolver will create locations from listing text")
	}
	return locs, nil
}
