// Package merge reconciles the authoritative staging set into the canonical
// tables. A run has two phases that commit independently: phase one enriches
// entity metadata, phase two folds staged sightings into the local
// observation set. Dry runs evaluate both phases against the same state and
// report the same counts without writing anything.
package merge

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"netsight/internal/config"
	"netsight/internal/logging"
	"netsight/internal/observation"
	"netsight/internal/services"
	"netsight/internal/store"
)

// Options select what a run covers.
type Options struct {
	// Source labels the run in the audit trail.
	Source observation.Source
	// BSSID scopes the run to one entity when set.
	BSSID string
	// DryRun evaluates both phases without mutating anything.
	DryRun bool
}

// Report summarizes one run.
type Report struct {
	BatchID           string
	NetworksEnriched  int
	ObservationsAdded int
	DuplicatesSkipped int
	DryRun            bool
}

// Engine drives reconciliation runs against one store.
type Engine struct {
	store   *store.Store
	epsilon float64
	logger  *slog.Logger
}

// NewEngine constructs an engine using the configured duplicate tolerance.
func NewEngine(s *store.Store, cfg *config.Config, logger *slog.Logger) *Engine {
	return &Engine{
		store:   s,
		epsilon: cfg.Merge.CoordinateEpsilon,
		logger:  logging.WithComponent(logger, "merge"),
	}
}

// Run executes a reconciliation pass. The schema precondition is verified
// before any phase touches data; a failed check aborts the run with a
// configuration error and no mutation.
func (e *Engine) Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Source == "" {
		opts.Source = observation.SourceAPI
	}
	if err := e.store.CheckReady(ctx); err != nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "merge", "precondition", "schema not ready", err)
	}

	report := Report{DryRun: opts.DryRun}
	if !opts.DryRun {
		report.BatchID = uuid.NewString()
		if err := e.recordBatch(ctx, report.BatchID, opts); err != nil {
			return Report{}, err
		}
	}

	enriched, err := e.enrichNetworks(ctx, opts, report.BatchID)
	if err != nil {
		return Report{}, err
	}
	report.NetworksEnriched = enriched

	added, skipped, err := e.foldObservations(ctx, opts, report.BatchID)
	if err != nil {
		return Report{}, err
	}
	report.ObservationsAdded = added
	report.DuplicatesSkipped = skipped

	e.logger.Info("merge run finished",
		"batch_id", report.BatchID,
		"dry_run", report.DryRun,
		"networks_enriched", report.NetworksEnriched,
		"observations_added", report.ObservationsAdded,
		"duplicates_skipped", report.DuplicatesSkipped,
	)
	return report, nil
}

func (e *Engine) recordBatch(ctx context.Context, batchID string, opts Options) error {
	_, err := e.store.Exec(ctx,
		`INSERT INTO merge_batches (id, source, started_at) VALUES (?, ?, ?)`,
		batchID, string(opts.Source), store.Now())
	if err != nil {
		return services.Wrap(services.ErrTransient, "merge", "record batch", batchID, err)
	}
	return nil
}

const enrichCandidateWhere = `networks.api_enriched = 0
		AND EXISTS (SELECT 1 FROM api_networks a WHERE a.bssid = networks.bssid)`

// enrichNetworks is phase one. Authoritative values win for encryption,
// trilaterated position and street address; existing local values win for
// display fields; temporal bounds only widen. Entities already enriched are
// left alone so re-runs are no-ops.
func (e *Engine) enrichNetworks(ctx context.Context, opts Options, batchID string) (int, error) {
	where := enrichCandidateWhere
	args := []any{}
	if opts.BSSID != "" {
		where += ` AND networks.bssid = ?`
		args = append(args, opts.BSSID)
	}

	if opts.DryRun {
		var count int
		row := e.store.QueryRow(ctx, `SELECT COUNT(*) FROM networks WHERE `+where, args...)
		if err := row.Scan(&count); err != nil {
			return 0, services.Wrap(services.ErrTransient, "merge", "enrich networks", "count candidates", err)
		}
		return count, nil
	}

	now := store.Now()
	res, err := e.store.Exec(ctx,
		`UPDATE networks SET
			ssid = COALESCE(networks.ssid, a.ssid),
			channel = COALESCE(networks.channel, a.channel),
			bcn_interval = COALESCE(networks.bcn_interval, a.bcn_interval),
			encryption = COALESCE(a.encryption, networks.encryption),
			trilat = COALESCE(a.trilat, networks.trilat),
			trilon = COALESCE(a.trilon, networks.trilon),
			street_address = COALESCE(a.street_address, networks.street_address),
			first_seen_ms = CASE
				WHEN networks.first_seen_ms IS NULL THEN a.first_seen_ms
				WHEN a.first_seen_ms IS NULL THEN networks.first_seen_ms
				ELSE MIN(networks.first_seen_ms, a.first_seen_ms)
			END,
			last_seen_ms = CASE
				WHEN networks.last_seen_ms IS NULL THEN a.last_seen_ms
				WHEN a.last_seen_ms IS NULL THEN networks.last_seen_ms
				ELSE MAX(networks.last_seen_ms, a.last_seen_ms)
			END,
			api_enriched = 1,
			merge_batch_id = ?,
			updated_at = ?
		FROM api_networks a
		WHERE a.bssid = networks.bssid AND `+where,
		append([]any{batchID, now}, args...)...)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "merge", "enrich networks", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "merge", "enrich networks", "rows affected", err)
	}
	return int(affected), nil
}

type stagedObservation struct {
	id  int64
	obs observation.Observation
}

// foldObservations is phase two. Every staged sighting is classified against
// the pre-run local set: a sighting is a duplicate when a local one exists
// for the same entity on the same calendar day within the coordinate
// tolerance. Classification happens for the whole set before any insert so
// a dry run reports exactly what a real run would do.
func (e *Engine) foldObservations(ctx context.Context, opts Options, batchID string) (added, skipped int, err error) {
	staged, err := e.loadStaged(ctx, opts.BSSID)
	if err != nil {
		return 0, 0, err
	}
	if len(staged) == 0 {
		return 0, 0, nil
	}

	fresh := make([]stagedObservation, 0, len(staged))
	for _, candidate := range staged {
		duplicate, err := e.isDuplicate(ctx, candidate.obs)
		if err != nil {
			return 0, 0, err
		}
		if duplicate {
			skipped++
			continue
		}
		fresh = append(fresh, candidate)
	}

	if opts.DryRun {
		return len(fresh), skipped, nil
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrTransient, "merge", "fold observations", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, candidate := range fresh {
		inserted, err := store.InsertMergedObservation(ctx, tx, candidate.obs, batchID, candidate.id)
		if err != nil {
			return 0, 0, services.Wrap(services.ErrTransient, "merge", "fold observations", candidate.obs.BSSID, err)
		}
		if inserted {
			added++
		} else {
			skipped++
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE networks SET api_observation_count = (
			SELECT COUNT(*) FROM api_observations a WHERE a.bssid = networks.bssid
		) WHERE EXISTS (SELECT 1 FROM api_observations a WHERE a.bssid = networks.bssid)`); err != nil {
		return 0, 0, services.Wrap(services.ErrTransient, "merge", "fold observations", "count backfill", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, services.Wrap(services.ErrTransient, "merge", "fold observations", "commit", err)
	}
	return added, skipped, nil
}

func (e *Engine) loadStaged(ctx context.Context, bssid string) ([]stagedObservation, error) {
	query := `SELECT id, bssid, ssid, signal_dbm, lat, lon, altitude, accuracy, observed_at_ms
		FROM api_observations`
	args := []any{}
	if bssid != "" {
		query += ` WHERE bssid = ?`
		args = append(args, bssid)
	}
	query += ` ORDER BY observed_at_ms, id`

	rows, err := e.store.Query(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "merge", "load staged", "", err)
	}
	defer rows.Close()

	var staged []stagedObservation
	for rows.Next() {
		var (
			id       int64
			obs      observation.Observation
			ssid     sql.NullString
			signal   sql.NullInt64
			altitude sql.NullFloat64
			accuracy sql.NullFloat64
		)
		if err := rows.Scan(&id, &obs.BSSID, &ssid, &signal, &obs.Lat, &obs.Lon,
			&altitude, &accuracy, &obs.ObservedAt); err != nil {
			return nil, services.Wrap(services.ErrTransient, "merge", "load staged", "scan", err)
		}
		obs.SSID = ssid.String
		if signal.Valid {
			obs.SignalDBM = observation.IntPtr(int(signal.Int64))
		}
		if altitude.Valid {
			obs.Altitude = observation.FloatPtr(altitude.Float64)
		}
		if accuracy.Valid {
			obs.Accuracy = observation.FloatPtr(accuracy.Float64)
		}
		obs.Source = observation.SourceAPI
		obs.SourceRef = "wigle:" + obs.BSSID
		staged = append(staged, stagedObservation{id: id, obs: obs})
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "merge", "load staged", "", err)
	}
	return staged, nil
}

// isDuplicate applies the sighting identity rule: same entity, same UTC
// calendar day, position within epsilon degrees on both axes. The
// fingerprint check catches byte-identical records regardless of day or
// distance arithmetic.
func (e *Engine) isDuplicate(ctx context.Context, obs observation.Observation) (bool, error) {
	var exists int
	row := e.store.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM observations o
			WHERE o.fingerprint = ?
		) OR EXISTS (
			SELECT 1 FROM observations o
			WHERE o.bssid = ?
			AND date(o.observed_at_ms / 1000, 'unixepoch') = ?
			AND abs(o.lat - ?) < ?
			AND abs(o.lon - ?) < ?
		)`,
		obs.Fingerprint(),
		obs.BSSID,
		obs.ObservedDay(),
		obs.Lat, e.epsilon,
		obs.Lon, e.epsilon,
	)
	if err := row.Scan(&exists); err != nil {
		return false, services.Wrap(services.ErrTransient, "merge", "classify sighting", obs.BSSID, err)
	}
	return exists != 0, nil
}
