// Package pipeline wires the full ingestion run: enumerate, extract, enrich,
// resolve, classify, persist, reconcile. One Run is one provider pass; the
// result object is owned by the caller, there is no shared run state.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shanehull/kidsource/internal/browser"
	"github.com/shanehull/kidsource/internal/detect"
	"github.com/shanehull/kidsource/internal/enrich"
	"github.com/shanehull/kidsource/internal/extract"
	"github.com/shanehull/kidsource/internal/model"
	"github.com/shanehull/kidsource/internal/navigate"
	"github.com/shanehull/kidsource/internal/resolve"
	"github.com/shanehull/kidsource/internal/source"
	"github.com/shanehull/kidsource/internal/storage"
)

type Options struct {
	Concurrency int
	Headless    bool
	PageCap     int
	GeocoderURL string
	// DirectoryURL, when set, seeds locations from the provider's static
	// facilities page before the browser run.
	DirectoryURL     string
	DirectoryDomains []string
}

type Result struct {
	Activities []model.Activity
	Stats      model.RunStats
}

// Enumerator produces the raw candidate blocks, plus a count of listing
// groups it had to skip over. The listing walk is the only implementation
// today, but the target DOM has been unstable enough that swapping
// strategies must not touch classification or reconciliation.
type Enumerator interface {
	Enumerate(ctx context.Context, pool *browser.Pool) ([]model.RawEntry, int, error)
}

type Pipeline struct {
	repo   storage.Repository
	site   navigate.Site
	logger *slog.Logger

	nav     Enumerator
	newPool func(ctx context.Context, size int, headless bool, logger *slog.Logger) (*browser.Pool, error)
	now     func() time.Time
}

func New(repo storage.Repository, site navigate.Site, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		repo:    repo,
		site:    site,
		logger:  logger,
		newPool: browser.NewPool,
		now:     time.Now,
	}
}

// Run executes one end-to-end pass. Structural failures (no browsers, the
// listing never loading, every session dying) abort the run, mark it FAILED
// and skip reconciliation; per-item failures are counted and absorbed.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := p.repo.EnsureProvider(ctx, p.site.ProviderID, p.site.ProviderName, p.site.ListingURL); err != nil {
		return nil, err
	}

	run := model.ScrapeRun{
		ID:         uuid.NewString(),
		ProviderID: p.site.ProviderID,
		Status:     model.RunRunning,
		StartedAt:  p.now(),
	}
	if err := p.repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	stats := &model.RunStats{}

	// The run record is written even on fatal failure, with the error
	// captured, so a dead run is visible rather than silently RUNNING.
	fail := func(err error) (*Result, error) {
		p.logger.Error("Run failed", "run_id", run.ID, "err", err)
		run.Status = model.RunFailed
		run.ErrorMessage = err.Error()
		run.Stats = *stats
		completed := p.now()
		run.CompletedAt = &completed
		if finishErr := p.repo.FinishRun(ctx, run); finishErr != nil {
			p.logger.Error("Failed to record failed run", "err", finishErr)
		}
		return nil, err
	}

	resolver, err := resolve.New(ctx, p.repo, p.logger.With("component", "resolver"))
	if err != nil {
		return fail(fmt.Errorf("loading locations: %w", err))
	}
	p.seedLocations(ctx, resolver, opts)

	pool, err := p.newPool(ctx, opts.Concurrency, opts.Headless, p.logger.With("component", "browser"))
	if err != nil {
		return fail(err)
	}
	defer pool.Close()

	entries, skipped, err := p.enumerate(ctx, pool, opts)
	if err != nil {
		return fail(err)
	}
	// Groups the walk could not expand are missed items, not just log lines.
	stats.Errors += skipped

	candidates := p.extractAll(entries, stats)

	enricher := enrich.New(pool, enrich.NewGeocoder(opts.GeocoderURL, p.logger.With("component", "geocoder")), p.logger.With("component", "enricher"))
	enrichErrs, err := enricher.EnrichAll(ctx, candidates)
	stats.Errors += enrichErrs
	if err != nil {
		return fail(fmt.Errorf("enrichment aborted: %w", err))
	}

	activities, seen := p.persist(ctx, resolver, candidates, stats)

	// Reconciliation runs only here, after complete enumeration and
	// persistence. A partial crawl must never mass-deactivate records that
	// are still offered.
	deactivated, err := p.repo.DeactivateMissing(ctx, p.site.ProviderID, seen)
	if err != nil {
		p.logger.Error("Reconciliation failed", "err", err)
		stats.Errors++
	}
	stats.Deactivated = deactivated

	run.Status = model.RunCompleted
	run.Stats = *stats
	completed := p.now()
	run.CompletedAt = &completed
	if err := p.repo.FinishRun(ctx, run); err != nil {
		p.logger.Error("Failed to record completed run", "err", err)
	}

	p.logger.Info("Run complete",
		"run_id", run.ID,
		"found", stats.Found,
		"created", stats.Created,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"deactivated", stats.Deactivated,
		"errors", stats.Errors)

	return &Result{Activities: activities, Stats: *stats}, nil
}

// enumerate runs the listing walk on one designated browser; enrichment
// later fans out across the whole pool.
func (p *Pipeline) enumerate(ctx context.Context, pool *browser.Pool, opts Options) ([]model.RawEntry, int, error) {
	nav := p.nav
	if nav == nil {
		nav = navigate.New(p.site, p.logger.With("component", "navigator"), opts.PageCap)
	}
	return nav.Enumerate(ctx, pool)
}

func (p *Pipeline) extractAll(entries []model.RawEntry, stats *model.RunStats) []*model.Candidate {
	var ordered []*model.Candidate
	byID := make(map[string]bool)

	for _, entry := range entries {
		stats.Found++
		c, err := extract.ParseAt(entry, p.now())
		if err != nil {
			if errors.Is(err, extract.ErrNoExternalID) {
				// Dropped, not persisted: without a stable id the record
				// could never be deduplicated or reconciled.
				p.logger.Warn("Entry dropped", "err", err)
			} else {
				p.logger.Warn("Extraction failed", "err", err)
				stats.Errors++
			}
			continue
		}
		if byID[c.ExternalID] {
			// The facet cross-product shows the same course under several
			// filters; first sighting wins.
			continue
		}
		byID[c.ExternalID] = true
		ordered = append(ordered, c)
	}
	return ordered
}

// persist classifies each candidate against the store and writes it. Returns
// the written activities and the seen id set for reconciliation.
func (p *Pipeline) persist(ctx context.Context, resolver *resolve.Resolver, candidates []*model.Candidate, stats *model.RunStats) ([]model.Activity, map[string]bool) {
	seen := make(map[string]bool)
	var out []model.Activity

	for _, c := range candidates {
		locationID := resolver.Resolve(ctx, c.LocationName, c.Address, c.Latitude, c.Longitude)

		snapshot, err := json.Marshal(c)
		if err != nil {
			p.logger.Error("Snapshot encode failed", "external_id", c.ExternalID, "err", err)
			stats.Errors++
			continue
		}

		now := p.now()
		activity := c.Activity(p.site.ProviderID, locationID, string(snapshot), now)

		existing, err := p.repo.GetActivity(ctx, p.site.ProviderID, c.ExternalID)
		if err != nil {
			p.logger.Error("Lookup failed", "external_id", c.ExternalID, "err", err)
			stats.Errors++
			continue
		}

		switch detect.Classify(existing, activity) {
		case detect.Create:
			activity.CreatedAt = now
			activity.UpdatedAt = now
			if err := p.repo.UpsertActivity(ctx, activity); err != nil {
				p.logger.Error("Create failed", "external_id", c.ExternalID, "err", err)
				stats.Errors++
				continue
			}
			stats.Created++
			p.logger.Info("Created activity", "external_id", c.ExternalID, "name", c.Name)

		case detect.Update:
			activity.CreatedAt = existing.CreatedAt
			activity.UpdatedAt = now
			if err := p.repo.UpsertActivity(ctx, activity); err != nil {
				p.logger.Error("Update failed", "external_id", c.ExternalID, "err", err)
				stats.Errors++
				continue
			}
			stats.Updated++
			p.logger.Debug("Updated activity", "external_id", c.ExternalID, "fields", detect.Diff(existing, activity))

		case detect.Unchanged:
			// Presence tracking must survive even when content hasn't
			// changed: the sighting advances last_seen_at, and a record a
			// prior run deactivated is active again now that it is back.
			if err := p.repo.TouchActivity(ctx, p.site.ProviderID, c.ExternalID, now); err != nil {
				p.logger.Error("Touch failed", "external_id", c.ExternalID, "err", err)
				stats.Errors++
				continue
			}
			stats.Unchanged++
			activity = *existing
			activity.LastSeenAt = now
			activity.IsActive = true
		}

		seen[c.ExternalID] = true
		out = append(out, activity)
	}
	return out, seen
}

// seedLocations pre-populates venues from the static facilities directory.
// Failure here is never fatal: the resolver's create path covers any venue
// the directory missed.
func (p *Pipeline) seedLocations(ctx context.Context, resolver *resolve.Resolver, opts Options) {
	if opts.DirectoryURL == "" {
		return
	}
	dir := source.NewDirectoryScraper(p.logger.With("source", "FacilityDirectory"), opts.DirectoryURL, opts.DirectoryDomains...)
	locs, err := dir.Fetch(ctx)
	if err != nil {
		p.logger.Warn("Facility directory fetch failed", "err", err)
		return
	}
	seeded := 0
	for _, loc := range locs {
		if resolver.Seed(ctx, loc) {
			seeded++
		}
	}
	p.logger.Info("Seeded locations", "fetched", len(locs), "new", seeded)
}
