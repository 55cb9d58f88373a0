package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"netsight/internal/observation"
)

// InsertObservation writes one observation row inside the caller's
// transaction and folds the sighting into its canonical entity. The UNIQUE
// fingerprint constraint decides duplicate classification; a false return
// means the record already existed and nothing changed. The entity row
// widens monotonically and is never replaced.
func InsertObservation(ctx context.Context, tx *sql.Tx, obs observation.Observation) (bool, error) {
	return insertObservation(ctx, tx, obs, "", nil, false)
}

// InsertMergedObservation is the reconciliation variant: the row carries the
// merge batch it arrived in and a backreference to the staged record, and
// the entity's local sighting counter is left alone.
func InsertMergedObservation(ctx context.Context, tx *sql.Tx, obs observation.Observation, batchID string, apiObservationID int64) (bool, error) {
	return insertObservation(ctx, tx, obs, batchID, &apiObservationID, true)
}

func insertObservation(ctx context.Context, tx *sql.Tx, obs observation.Observation, batchID string, apiObservationID *int64, merged bool) (bool, error) {
	metadataJSON, err := marshalMetadata(obs.Metadata)
	if err != nil {
		return false, fmt.Errorf("encode metadata: %w", err)
	}

	now := Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO observations (
			fingerprint, bssid, ssid, network_type, encryption, signal_dbm,
			lat, lon, altitude, accuracy, observed_at_ms,
			source, source_ref, api_observation_id, merge_batch_id, metadata_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO NOTHING`,
		obs.Fingerprint(),
		NormalizeBSSID(obs.BSSID),
		NullableString(obs.SSID),
		NullableString(obs.NetworkType),
		NullableString(obs.Encryption),
		NullableInt(obs.SignalDBM),
		obs.Lat,
		obs.Lon,
		NullableFloat(obs.Altitude),
		NullableFloat(obs.Accuracy),
		obs.ObservedAt,
		string(obs.Source),
		NullableString(obs.SourceRef),
		NullableInt64(apiObservationID),
		NullableString(batchID),
		NullableString(metadataJSON),
		now,
	)
	if err != nil {
		return false, fmt.Errorf("insert observation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := upsertNetwork(ctx, tx, obs, now, merged); err != nil {
		return false, err
	}
	return true, nil
}

// upsertNetwork creates the canonical entity on first sighting and widens it
// afterwards: temporal bounds are monotonic and existing non-null display
// fields win over incoming values.
func upsertNetwork(ctx context.Context, tx *sql.Tx, obs observation.Observation, now string, merged bool) error {
	networkType := obs.NetworkType
	if strings.TrimSpace(networkType) == "" {
		networkType = "W"
	}
	localIncrement := 1
	if merged {
		localIncrement = 0
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO networks (
			bssid, ssid, network_type, encryption,
			first_seen_ms, last_seen_ms, local_observation_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bssid) DO UPDATE SET
			ssid = COALESCE(networks.ssid, excluded.ssid),
			encryption = COALESCE(networks.encryption, excluded.encryption),
			first_seen_ms = CASE
				WHEN networks.first_seen_ms IS NULL THEN excluded.first_seen_ms
				ELSE MIN(networks.first_seen_ms, excluded.first_seen_ms)
			END,
			last_seen_ms = CASE
				WHEN networks.last_seen_ms IS NULL THEN excluded.last_seen_ms
				ELSE MAX(networks.last_seen_ms, excluded.last_seen_ms)
			END,
			local_observation_count = networks.local_observation_count + ?,
			updated_at = excluded.updated_at`,
		NormalizeBSSID(obs.BSSID),
		NullableString(obs.SSID),
		networkType,
		NullableString(obs.Encryption),
		obs.ObservedAt,
		obs.ObservedAt,
		localIncrement,
		now,
		now,
		localIncrement,
	)
	if err != nil {
		return fmt.Errorf("upsert network: %w", err)
	}
	return nil
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

// NormalizeBSSID canonicalizes a hardware address for storage and lookup.
func NormalizeBSSID(bssid string) string {
	return strings.ToUpper(strings.TrimSpace(bssid))
}
