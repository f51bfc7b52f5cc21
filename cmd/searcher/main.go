package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shanehull/kidsource/internal/storage"
)

func main() {
	dbPath := flag.String("db", "out/kidsource.duckdb", "Path to DuckDB file")
	category := flag.String("category", "", "Filter by category (case-insensitive contains)")
	day := flag.String("day", "", "Filter by day of week (e.g. Saturday)")
	maxAge := flag.Int("age", 0, "Only activities open to this age")
	activeOnly := flag.Bool("active", true, "Only currently offered activities")
	outPath := flag.String("out", "out/search_results.csv", "Output CSV path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	repo, err := storage.NewDuckDBRepo(*dbPath, logger)
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	where := []string{"1=1"}
	if *activeOnly {
		where = append(where, "is_active = TRUE")
	}
	if *category != "" {
		where = append(where, fmt.Sprintf("lower(category) LIKE '%%%s%%'", strings.ToLower(*category)))
	}
	if *day != "" {
		where = append(where, fmt.Sprintf("contains(days_of_week, '%s')", *day))
	}
	if *maxAge > 0 {
		where = append(where, fmt.Sprintf("(age_min IS NULL OR age_min <= %d)", *maxAge))
		where = append(where, fmt.Sprintf("(age_max IS NULL OR age_max >= %d)", *maxAge))
	}

	query := fmt.Sprintf(`COPY (
		SELECT a.external_id, a.name, a.category, a.subcategory, a.schedule, a.days_of_week,
			a.date_start, a.date_end, a.age_min, a.age_max, a.cost, a.spots_available,
			a.registration_status, a.registration_url, l.name AS location
		FROM activities a LEFT JOIN locations l ON a.location_id = l.id
		WHERE %s ORDER BY a.date_start ASC
	) TO '%s' (HEADER, DELIMITER ',');`,
		strings.Join(where, " AND "),
		*outPath,
	)

	_, err = repo.GetDB().ExecContext(ctx, query)
	if err != nil {
		logger.Error("Search failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Search complete", "output", *outPath)
}
