package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/shanehull/kidsource/internal/model"
)

type DuckDBRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDuckDBRepo(path string, logger *slog.Logger) (*DuckDBRepo, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	return &DuckDBRepo{db: db, logger: logger}, nil
}

func (r *DuckDBRepo) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS providers (
			id TEXT PRIMARY KEY,
			name TEXT,
			base_url TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS locations (
			id TEXT PRIMARY KEY,
			name TEXT,
			normalized_name TEXT,
			address TEXT,
			latitude DOUBLE,
			longitude DOUBLE,
			facility_type TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS activities (
			provider_id TEXT,
			external_id TEXT,
			name TEXT,
			category TEXT,
			subcategory TEXT,
			schedule TEXT,
			days_of_week TEXT,
			date_start TIMESTAMP,
			date_end TIMESTAMP,
			registration_date TIMESTAMP,
			age_min INTEGER,
			age_max INTEGER,
			cost DOUBLE,
			tax_included BOOLEAN,
			spots_available INTEGER,
			total_spots INTEGER,
			registration_status TEXT,
			registration_url TEXT,
			location_id TEXT,
			instructor TEXT,
			description TEXT,
			full_description TEXT,
			what_to_bring TEXT,
			raw_snapshot TEXT,
			last_seen_at TIMESTAMP,
			is_active BOOLEAN,
			created_at TIMESTAMP,
			updated_at TIMESTAMP,
			PRIMARY KEY (provider_id, external_id)
		);`,
		`CREATE TABLE IF NOT EXISTS scrape_runs (
			id TEXT PRIMARY KEY,
			provider_id TEXT,
			status TEXT,
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			found INTEGER,
			created INTEGER,
			updated INTEGER,
			unchanged INTEGER,
			deactivated INTEGER,
			errors INTEGER,
			error_message TEXT
		);`,
	}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *DuckDBRepo) EnsureProvider(ctx context.Context, id, name, baseURL string) error {
	query := `INSERT INTO providers (id, name, base_url) VALUES (?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, base_url = EXCLUDED.base_url;`
	_, err := r.db.ExecContext(ctx, query, id, name, baseURL)
	return err
}

func (r *DuckDBRepo) GetActivity(ctx context.Context, providerID, externalID string) (*model.Activity, error) {
	query := `SELECT provider_id, external_id, name, category, subcategory, schedule, days_of_week,
		date_start, date_end, registration_date, age_min, age_max, cost, tax_included,
		spots_available, total_spots, registration_status, registration_url, location_id,
		instructor, description, full_description, what_to_bring, raw_snapshot,
		last_seen_at, is_active, created_at, updated_at
	FROM activities WHERE provider_id = ? AND external_id = ?`
	row := r.db.QueryRowContext(ctx, query, providerID, externalID)

	var a model.Activity
	var days, status, locationID sql.NullString
	var dateStart, dateEnd, regDate sql.NullTime
	var ageMin, ageMax, spots, total sql.NullInt64
	err := row.Scan(
		&a.ProviderID, &a.ExternalID, &a.Name, &a.Category, &a.Subcategory, &a.Schedule, &days,
		&dateStart, &dateEnd, &regDate, &ageMin, &ageMax, &a.Cost, &a.TaxIncluded,
		&spots, &total, &status, &a.RegistrationURL, &locationID,
		&a.Instructor, &a.Description, &a.FullDescription, &a.WhatToBring, &a.RawSnapshot,
		&a.LastSeenAt, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if days.Valid && days.String != "" {
		a.DaysOfWeek = strings.Split(days.String, ",")
	}
	if dateStart.Valid {
		a.DateStart = dateStart.Time
	}
	if dateEnd.Valid {
		a.DateEnd = dateEnd.Time
	}
	if regDate.Valid {
		a.RegistrationDate = regDate.Time
	}
	a.AgeMin = intPtr(ageMin)
	a.AgeMax = intPtr(ageMax)
	a.SpotsAvailable = intPtr(spots)
	a.TotalSpots = intPtr(total)
	a.RegistrationStatus = model.RegistrationStatus(status.String)
	a.LocationID = locationID.String
	return &a, nil
}

// UpsertActivity is keyed on the (provider_id, external_id) constraint, so a
// re-run that hits the same record again is a no-op apart from the refreshed
// bookkeeping columns.
func (r *DuckDBRepo) UpsertActivity(ctx context.Context, a model.Activity) error {
	query := `
	INSERT INTO activities (provider_id, external_id, name, category, subcategory, schedule, days_of_week,
		date_start, date_end, registration_date, age_min, age_max, cost, tax_included,
		spots_available, total_spots, registration_status, registration_url, location_id,
		instructor, description, full_description, what_to_bring, raw_snapshot,
		last_seen_at, is_active, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (provider_id, external_id) DO UPDATE SET
		name = EXCLUDED.name,
		category = EXCLUDED.category,
		subcategory = EXCLUDED.subcategory,
		schedule = EXCLUDED.schedule,
		days_of_week = EXCLUDED.days_of_week,
		date_start = EXCLUDED.date_start,
		date_end = EXCLUDED.date_end,
		registration_date = EXCLUDED.registration_date,
		age_min = EXCLUDED.age_min,
		age_max = EXCLUDED.age_max,
		cost = EXCLUDED.cost,
		tax_included = EXCLUDED.tax_included,
		spots_available = EXCLUDED.spots_available,
		total_spots = EXCLUDED.total_spots,
		registration_status = EXCLUDED.registration_status,
		registration_url = EXCLUDED.registration_url,
		location_id = EXCLUDED.location_id,
		instructor = EXCLUDED.instructor,
		description = EXCLUDED.description,
		full_description = EXCLUDED.full_description,
		what_to_bring = EXCLUDED.what_to_bring,
		raw_snapshot = EXCLUDED.raw_snapshot,
		last_seen_at = EXCLUDED.last_seen_at,
		is_active = EXCLUDED.is_active,
		updated_at = EXCLUDED.updated_at;`

	now := time.Now()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := a.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}
	_, err := r.db.ExecContext(ctx, query,
		a.ProviderID, a.ExternalID, a.Name, a.Category, a.Subcategory, a.Schedule, strings.Join(a.DaysOfWeek, ","),
		nullTime(a.DateStart), nullTime(a.DateEnd), nullTime(a.RegistrationDate),
		nullInt(a.AgeMin), nullInt(a.AgeMax), a.Cost, a.TaxIncluded,
		nullInt(a.SpotsAvailable), nullInt(a.TotalSpots), string(a.RegistrationStatus), a.RegistrationURL, nullStr(a.LocationID),
		a.Instructor, a.Description, a.FullDescription, a.WhatToBring, a.RawSnapshot,
		a.LastSeenAt, a.IsActive, createdAt, updatedAt,
	)
	return err
}

// TouchActivity records a sighting: last_seen_at advances and the record is
// active again even if a previous run had deactivated it. Being observed is
// the definition of active.
func (r *DuckDBRepo) TouchActivity(ctx context.Context, providerID, externalID string, seenAt time.Time) error {
	query := `UPDATE activities SET last_seen_at = ?, is_active = TRUE WHERE provider_id = ? AND external_id = ?`
	_, err := r.db.ExecContext(ctx, query, seenAt, providerID, externalID)
	return err
}

func (r *DuckDBRepo) DeactivateMissing(ctx context.Context, providerID string, seen map[string]bool) (int, error) {
	ids := make([]string, 0, len(seen))
	args := []interface{}{time.Now(), providerID}
	for id := range seen {
		ids = append(ids, "?")
		args = append(args, id)
	}

	query := `UPDATE activities SET is_active = FALSE, updated_at = ? WHERE provider_id = ? AND is_active = TRUE`
	if len(ids) > 0 {
		query += fmt.Sprintf(" AND external_id NOT IN (%s)", strings.Join(ids, ", "))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *DuckDBRepo) ListLocations(ctx context.Context) ([]model.Location, error) {
	query := `SELECT id, name, normalized_name, address, latitude, longitude, facility_type FROM locations`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locs []model.Location
	for rows.Next() {
		var l model.Location
		var lat, lng sql.NullFloat64
		var addr sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &l.NormalizedName, &addr, &lat, &lng, &l.FacilityType); err != nil {
			return nil, err
		}
		l.Address = addr.String
		if lat.Valid {
			v := lat.Float64
			l.Latitude = &v
		}
		if lng.Valid {
			v := lng.Float64
			l.Longitude = &v
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

func (r *DuckDBRepo) SaveLocation(ctx context.Context, l model.Location) error {
	query := `
	INSERT INTO locations (id, name, normalized_name, address, latitude, longitude, facility_type, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		address = EXCLUDED.address,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		updated_at = EXCLUDED.updated_at;`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.Name, l.NormalizedName, nullStr(l.Address), nullFloat(l.Latitude), nullFloat(l.Longitude), l.FacilityType, now, now)
	return err
}

func (r *DuckDBRepo) CreateRun(ctx context.Context, run model.ScrapeRun) error {
	query := `INSERT INTO scrape_runs (id, provider_id, status, started_at, found, created, updated, unchanged, deactivated, errors, error_message)
	VALUES (?, ?, ?, ?, 0, 0, 0, 0, 0, 0, '')`
	_, err := r.db.ExecContext(ctx, query, run.ID, run.ProviderID, string(run.Status), run.StartedAt)
	return err
}

func (r *DuckDBRepo) FinishRun(ctx context.Context, run model.ScrapeRun) error {
	query := `UPDATE scrape_runs SET status = ?, completed_at = ?, found = ?, created = ?, updated = ?,
		unchanged = ?, deactivated = ?, errors = ?, error_message = ? WHERE id = ?`
	var completed interface{}
	if run.CompletedAt != nil {
		completed = *run.CompletedAt
	}
	_, err := r.db.ExecContext(ctx, query,
		string(run.Status), completed,
		run.Stats.Found, run.Stats.Created, run.Stats.Updated,
		run.Stats.Unchanged, run.Stats.Deactivated, run.Stats.Errors,
		run.ErrorMessage, run.ID)
	return err
}

func (r *DuckDBRepo) Close() error {
	return r.db.Close()
}

func (r *DuckDBRepo) GetDB() *sql.DB {
	return r.db
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
