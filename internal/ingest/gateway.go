package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"netsight/internal/logging"
	"netsight/internal/observation"
	"netsight/internal/services"
	"netsight/internal/store"
)

// Gateway persists observations with an at-most-once guarantee per logical
// fingerprint.
type Gateway struct {
	store  *store.Store
	logger *slog.Logger
}

// NewGateway constructs a gateway over the provided store session.
func NewGateway(s *store.Store, logger *slog.Logger) *Gateway {
	return &Gateway{
		store:  s,
		logger: logging.WithComponent(logger, "ingest"),
	}
}

// InsertOne persists a single observation. It returns false when a record
// with the same fingerprint already exists; that is a normal outcome, not an
// error.
func (g *Gateway) InsertOne(ctx context.Context, obs observation.Observation) (bool, error) {
	if err := obs.Validate(); err != nil {
		return false, err
	}

	tx, err := g.store.Begin(ctx)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "ingest", "insert one", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted, err := store.InsertObservation(ctx, tx, obs)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "ingest", "insert one", obs.BSSID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, services.Wrap(services.ErrTransient, "ingest", "insert one", "commit", err)
	}
	return inserted, nil
}

// InsertBatch persists a collection of observations in one transaction,
// tallying outcomes. Records are processed in input order; malformed records
// are skipped and counted. A store failure rolls back the whole batch and
// propagates.
func (g *Gateway) InsertBatch(ctx context.Context, records []observation.Observation) (BatchStats, error) {
	stats := BatchStats{Total: len(records)}
	if len(records) == 0 {
		return stats, nil
	}

	tx, err := g.store.Begin(ctx)
	if err != nil {
		return BatchStats{}, services.Wrap(services.ErrTransient, "ingest", "insert batch", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, obs := range records {
		if err := obs.Validate(); err != nil {
			stats.Skipped++
			g.logger.Debug("skipping malformed record", "bssid", obs.BSSID, "error", err)
			continue
		}
		inserted, err := store.InsertObservation(ctx, tx, obs)
		if err != nil {
			return BatchStats{}, services.Wrap(services.ErrTransient, "ingest", "insert batch", obs.BSSID, err)
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Duplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		return BatchStats{}, services.Wrap(services.ErrTransient, "ingest", "insert batch", "commit", err)
	}

	g.logger.Info("batch ingested",
		"total", stats.Total,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

var errNilDetail = errors.New("nil network detail")
