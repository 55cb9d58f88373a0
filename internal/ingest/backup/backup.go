// Package backup parses survey-device database exports. An export is a
// SQLite file holding a network table (one row per entity, capability
// string included) and a location table (one row per sighting). The two are
// joined here so every sighting carries its entity attributes.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"netsight/internal/observation"
)

// Adapter parses device database exports.
type Adapter struct{}

// New constructs the backup adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name identifies the adapter for format selection.
func (a *Adapter) Name() string {
	return "backup"
}

// Parse opens the export read-only and streams every located sighting.
// Sightings without a position row are meaningless for reconciliation and
// are not emitted.
func (a *Adapter) Parse(ctx context.Context, path string) ([]observation.Observation, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT l.bssid, n.ssid, n.type, n.capabilities, l.level,
			l.lat, l.lon, l.altitude, l.accuracy, l.time
		FROM location l
		JOIN network n ON n.bssid = l.bssid
		ORDER BY l.time, l.bssid`)
	if err != nil {
		return nil, fmt.Errorf("query backup: %w", err)
	}
	defer rows.Close()

	var observations []observation.Observation
	for rows.Next() {
		var (
			bssid        string
			ssid         sql.NullString
			networkType  sql.NullString
			capabilities sql.NullString
			level        sql.NullInt64
			lat          float64
			lon          float64
			altitude     sql.NullFloat64
			accuracy     sql.NullFloat64
			observedAt   int64
		)
		if err := rows.Scan(&bssid, &ssid, &networkType, &capabilities, &level,
			&lat, &lon, &altitude, &accuracy, &observedAt); err != nil {
			return nil, fmt.Errorf("scan backup row: %w", err)
		}

		obs := observation.Observation{
			BSSID:       bssid,
			SSID:        ssid.String,
			NetworkType: networkType.String,
			Encryption:  capabilities.String,
			Lat:         lat,
			Lon:         lon,
			ObservedAt:  observedAt,
			Source:      observation.SourceBackup,
		}
		if level.Valid {
			obs.SignalDBM = observation.IntPtr(int(level.Int64))
		}
		if altitude.Valid && altitude.Float64 != 0 {
			obs.Altitude = observation.FloatPtr(altitude.Float64)
		}
		if accuracy.Valid && accuracy.Float64 != 0 {
			obs.Accuracy = observation.FloatPtr(accuracy.Float64)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup rows: %w", err)
	}
	return observations, nil
}
