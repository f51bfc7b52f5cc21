// Package resolve matches candidate venue text to stored locations, creating
// a row when nothing matches. Resolution never blocks the owning activity.
package resolve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"
	"github.com/shanehull/kidsource/internal/model"
)

// Store is the slice of the persistence gateway the resolver needs.
type Store interface {
	ListLocations(ctx context.Context) ([]model.Location, error)
	SaveLocation(ctx context.Context, loc model.Location) error
}

// similarityThreshold is tuned, not derived: high enough that "Ron Andrews
// Community Recreation Centre" and "Ron Andrews Rec Ctr" collapse while
// distinct venues on the same street stay apart.
const similarityThreshold = 0.92

type Resolver struct {
	repo   Store
	logger *slog.Logger
	locs   []model.Location
}

// New loads the known locations once; the venue set is small and stable
// within a run.
func New(ctx context.Context, repo Store, logger *slog.Logger) (*Resolver, error) {
	locs, err := repo.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	return &Resolver{repo: repo, logger: logger, locs: locs}, nil
}

// Resolve returns the location id for the venue named in the candidate,
// walking the match order: exact name+address, normalized name, substring,
// fuzzy, create. An empty name resolves to no location. Store failures are
// logged and swallowed so the activity write still proceeds.
func (r *Resolver) Resolve(ctx context.Context, name, address string, lat, lng *float64) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if loc := r.match(name, address); loc != nil {
		return loc.ID
	}

	loc := model.Location{
		ID:             uuid.NewString(),
		Name:           name,
		NormalizedName: model.NormalizeVenueName(name),
		Address:        address,
		Latitude:       lat,
		Longitude:      lng,
		FacilityType:   model.InferFacilityType(name),
	}
	if err := r.repo.SaveLocation(ctx, loc); err != nil {
		r.logger.Error("Location save failed", "name", name, "err", err)
		return ""
	}
	r.locs = append(r.locs, loc)
	r.logger.Debug("Created location", "name", name, "type", loc.FacilityType)
	return loc.ID
}

// Seed stores a directory-sourced venue unless it already matches a known
// one. Returns true when a new row was written.
func (r *Resolver) Seed(ctx context.Context, loc model.Location) bool {
	if existing := r.match(loc.Name, loc.Address); existing != nil {
		// The directory usually has the better address; keep it.
		if loc.Address != "" && existing.Address == "" {
			existing.Address = loc.Address
			if err := r.repo.SaveLocation(ctx, *existing); err != nil {
				r.logger.Error("Location update failed", "name", existing.Name, "err", err)
			}
		}
		return false
	}
	if err := r.repo.SaveLocation(ctx, loc); err != nil {
		r.logger.Error("Location save failed", "name", loc.Name, "err", err)
		return false
	}
	r.locs = append(r.locs, loc)
	return true
}

func (r *Resolver) match(name, address string) *model.Location {
	normalized := model.NormalizeVenueName(name)
	lower := strings.ToLower(name)

	for i := range r.locs {
		if strings.EqualFold(r.locs[i].Name, name) &&
			(address == "" || strings.EqualFold(r.locs[i].Address, address)) {
			return &r.locs[i]
		}
	}
	for i := range r.locs {
		if r.locs[i].NormalizedName == normalized {
			return &r.locs[i]
		}
	}
	for i := range r.locs {
		known := strings.ToLower(r.locs[i].Name)
		if strings.Contains(known, lower) || strings.Contains(lower, known) {
			return &r.locs[i]
		}
	}
	for i := range r.locs {
		if matchr.JaroWinkler(r.locs[i].NormalizedName, normalized, false) >= similarityThreshold {
			return &r.locs[i]
		}
	}
	return nil
}
