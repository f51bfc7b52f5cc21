// The admin command is the only path that mutates activities outside a run:
// the reconciler flips records inactive automatically, but bringing one back
// (or removing it outright) is an explicit operator action.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/shanehull/kidsource/internal/storage"
)

func main() {
	dbPath := flag.String("db", "out/kidsource.duckdb", "Path to DuckDB file")
	providerID := flag.String("provider", "nvrc", "Provider id")
	externalID := flag.String("id", "", "External id of the activity")
	reactivate := flag.Bool("reactivate", false, "Set the activity active again")
	purge := flag.Bool("purge", false, "Hard-delete the activity")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *externalID == "" {
		logger.Error("-id is required")
		os.Exit(1)
	}
	if *reactivate == *purge {
		logger.Error("Exactly one of -reactivate or -purge is required")
		os.Exit(1)
	}

	repo, err := storage.NewDuckDBRepo(*dbPath, logger)
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx := context.Background()

	var query string
	var args []interface{}
	if *purge {
		query = `DELETE FROM activities WHERE provider_id = ? AND external_id = ?`
		args = []interface{}{*providerID, *externalID}
	} else {
		query = `UPDATE activities SET is_active = TRUE, updated_at = ? WHERE provider_id = ? AND external_id = ?`
		args = []interface{}{time.Now(), *providerID, *externalID}
	}

	res, err := repo.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		logger.Error("Admin action failed", "error", err)
		os.Exit(1)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		logger.Warn("No matching activity", "provider", *providerID, "id", *externalID)
		return
	}

	if *purge {
		logger.Info("Activity purged", "provider", *providerID, "id", *externalID)
	} else {
		logger.Info("Activity reactivated", "provider", *providerID, "id", *externalID)
	}
}
