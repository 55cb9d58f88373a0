package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users recreate the database rather than migrate.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// requiredTables and requiredColumns describe the surface the merge engine
// depends on. CheckReady verifies them before any reconciliation mutation.
var requiredTables = []string{"networks", "observations", "api_networks", "api_observations", "enrichment_queue", "merge_batches"}

var requiredColumns = map[string][]string{
	"networks":     {"bssid", "api_enriched", "first_seen_ms", "last_seen_ms", "merge_batch_id"},
	"observations": {"fingerprint", "bssid", "source", "api_observation_id", "merge_batch_id"},
}

// CheckReady verifies the schema surface required by reconciliation. It
// reports a single descriptive error naming everything that is missing.
func (s *Store) CheckReady(ctx context.Context) error {
	var missing []string
	for _, table := range requiredTables {
		var count int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name = ?", table,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if count == 0 {
			missing = append(missing, "table "+table)
			continue
		}
		wanted, ok := requiredColumns[table]
		if !ok {
			continue
		}
		present, err := s.tableColumns(ctx, table)
		if err != nil {
			return err
		}
		for _, column := range wanted {
			if _, ok := present[column]; !ok {
				missing = append(missing, fmt.Sprintf("column %s.%s", table, column))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema not ready: missing %v", missing)
	}
	return nil
}

func (s *Store) tableColumns(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		columns[name] = struct{}{}
	}
	return columns, rows.Err()
}
