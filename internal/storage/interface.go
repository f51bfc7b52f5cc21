package storage

import (
	"context"
	"time"

	"github.com/shanehull/kidsource/internal/model"
)

// Repository is the persistence gateway the pipeline writes through. Every
// write is independently idempotent; there are no cross-record transactions,
// so a run that dies midway leaves an internally consistent store.
type Repository interface {
	Init(ctx context.Context) error
	EnsureProvider(ctx context.Context, id, name, baseURL string) error

	GetActivity(ctx context.Context, providerID, externalID string) (*model.Activity, error)
	UpsertActivity(ctx context.Context, a model.Activity) error
	// TouchActivity records a sighting with no significant change: it
	// advances last_seen_at and flips the record active, so an activity
	// that disappeared and came back identical is reactivated.
	TouchActivity(ctx context.Context, providerID, externalID string, seenAt time.Time) error
	// DeactivateMissing flips active rows for the provider that are absent
	// from seen, returning how many were deactivated.
	DeactivateMissing(ctx context.Context, providerID string, seen map[string]bool) (int, error)

	ListLocations(ctx context.Context) ([]model.Location, error)
	SaveLocation(ctx context.Context, loc model.Location) error

	CreateRun(ctx context.Context, run model.ScrapeRun) error
	FinishRun(ctx context.Context, run model.ScrapeRun) error

	Close() error
}
