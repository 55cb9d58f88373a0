package ingest

import (
	"context"

	"netsight/internal/services"
	"netsight/internal/services/wigle"
	"netsight/internal/store"
)

// StageAPIDetail records an authoritative network detail and its observation
// history in the staging tables. The canonical tables are untouched; the
// merge engine reconciles staged rows later. Re-staging the same detail
// refreshes the network row and counts repeated observations as duplicates.
func (g *Gateway) StageAPIDetail(ctx context.Context, detail *wigle.NetworkDetail) (BatchStats, error) {
	if detail == nil {
		return BatchStats{}, services.Wrap(services.ErrValidation, "ingest", "stage api detail", "", errNilDetail)
	}

	tx, err := g.store.Begin(ctx)
	if err != nil {
		return BatchStats{}, services.Wrap(services.ErrTransient, "ingest", "stage api detail", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := store.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO api_networks (
			bssid, ssid, network_type, encryption, channel, bcn_interval,
			trilat, trilon, qos,
			first_seen_ms, last_seen_ms, last_update_ms, street_address, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (bssid) DO UPDATE SET
			ssid = excluded.ssid,
			network_type = excluded.network_type,
			encryption = excluded.encryption,
			channel = excluded.channel,
			bcn_interval = excluded.bcn_interval,
			trilat = excluded.trilat,
			trilon = excluded.trilon,
			qos = excluded.qos,
			first_seen_ms = excluded.first_seen_ms,
			last_seen_ms = excluded.last_seen_ms,
			last_update_ms = excluded.last_update_ms,
			street_address = excluded.street_address,
			fetched_at = excluded.fetched_at`,
		store.NormalizeBSSID(detail.BSSID),
		store.NullableString(detail.SSID),
		store.NullableString(detail.Type),
		store.NullableString(detail.Encryption),
		store.NullableInt(detail.Channel),
		store.NullableInt(detail.BcnInterval),
		store.NullableFloat(detail.TrilateratedLat),
		store.NullableFloat(detail.TrilateratedLon),
		store.NullableInt(detail.QoS),
		store.NullableEpochMS(detail.FirstSeen),
		store.NullableEpochMS(detail.LastSeen),
		store.NullableEpochMS(detail.LastUpdate),
		store.NullableString(mustMarshalAddress(detail.StreetAddress)),
		now,
	)
	if err != nil {
		return BatchStats{}, services.Wrap(services.ErrTransient, "ingest", "stage api detail", detail.BSSID, err)
	}

	stats := BatchStats{Total: len(detail.Observations)}
	for _, obs := range detail.Observations {
		if err := obs.Validate(); err != nil {
			stats.Skipped++
			g.logger.Debug("skipping malformed api observation", "bssid", obs.BSSID, "error", err)
			continue
		}
		metadataJSON, err := marshalMetadata(obs.Metadata)
		if err != nil {
			return BatchStats{}, services.Wrap(services.ErrTransient, "ingest", "stage api detail", "encode metadata", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO api_observations (
				fingerprint, bssid, ssid, signal_dbm, lat, lon,
				altitude, accuracy, observed_at_ms, metadata_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (fingerprint) DO NOTHING`,
			obs.Fingerprint(),
			store.NormalizeBSSID(obs.BSSID),
			store.NullableString(obs.SSID),
			store.NullableInt(obs.SignalDBM),
			obs.Lat,
			obs.Lon,
			store.NullableFloat(obs.Altitude),
			store.NullableFloat(obs.Accuracy),
			obs.ObservedAt,
			store.NullableString(metadataJSON),
			now,
		)
		if err != nil {
			return BatchStats{}, services.Wrap(services.ErrTransient, "ingest", "stage api detail", obs.BSSID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return BatchStats{}, services.Wrap(services.ErrTransient, "ingest", "stage api detail", "rows affected", err)
		}
		if affected > 0 {
			stats.Inserted++
		} else {
			stats.Duplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		return BatchStats{}, services.Wrap(services.ErrTransient, "ingest", "stage api detail", "commit", err)
	}

	g.logger.Info("api detail staged",
		"bssid", detail.BSSID,
		"observations", stats.Total,
		"inserted", stats.Inserted,
	)
	return stats, nil
}

func mustMarshalAddress(address map[string]string) string {
	if len(address) == 0 {
		return ""
	}
	converted := make(map[string]any, len(address))
	for k, v := range address {
		converted[k] = v
	}
	encoded, err := marshalMetadata(converted)
	if err != nil {
		return ""
	}
	return encoded
}
