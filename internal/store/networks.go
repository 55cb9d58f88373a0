package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Network is one canonical entity row.
type Network struct {
	ID                    int64
	BSSID                 string
	SSID                  string
	NetworkType           string
	Encryption            string
	Channel               *int
	BcnInterval           *int
	TrilateratedLat       *float64
	TrilateratedLon       *float64
	StreetAddress         string
	FirstSeenMS           *int64
	LastSeenMS            *int64
	APIEnriched           bool
	LocalObservationCount int
	APIObservationCount   int
	MergeBatchID          string
}

const networkColumns = `id, bssid, ssid, network_type, encryption, channel, bcn_interval,
	trilat, trilon, street_address, first_seen_ms, last_seen_ms, api_enriched,
	local_observation_count, api_observation_count, merge_batch_id`

// GetNetwork fetches a canonical entity by hardware address. Returns nil
// when no entity exists.
func (s *Store) GetNetwork(ctx context.Context, bssid string) (*Network, error) {
	row := s.QueryRow(ctx, `SELECT `+networkColumns+` FROM networks WHERE bssid = ?`, bssid)
	network, err := scanNetwork(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get network: %w", err)
	}
	return network, nil
}

func scanNetwork(scanner interface{ Scan(dest ...any) error }) (*Network, error) {
	var (
		n           Network
		ssid        sql.NullString
		networkType sql.NullString
		encryption  sql.NullString
		channel     sql.NullInt64
		bcnInterval sql.NullInt64
		trilat      sql.NullFloat64
		trilon      sql.NullFloat64
		address     sql.NullString
		firstSeen   sql.NullInt64
		lastSeen    sql.NullInt64
		enriched    int
		batchID     sql.NullString
	)
	if err := scanner.Scan(
		&n.ID,
		&n.BSSID,
		&ssid,
		&networkType,
		&encryption,
		&channel,
		&bcnInterval,
		&trilat,
		&trilon,
		&address,
		&firstSeen,
		&lastSeen,
		&enriched,
		&n.LocalObservationCount,
		&n.APIObservationCount,
		&batchID,
	); err != nil {
		return nil, err
	}

	n.SSID = ssid.String
	n.NetworkType = networkType.String
	n.Encryption = encryption.String
	n.StreetAddress = address.String
	n.APIEnriched = enriched != 0
	n.MergeBatchID = batchID.String
	if channel.Valid {
		v := int(channel.Int64)
		n.Channel = &v
	}
	if bcnInterval.Valid {
		v := int(bcnInterval.Int64)
		n.BcnInterval = &v
	}
	if trilat.Valid {
		n.TrilateratedLat = &trilat.Float64
	}
	if trilon.Valid {
		n.TrilateratedLon = &trilon.Float64
	}
	if firstSeen.Valid {
		n.FirstSeenMS = &firstSeen.Int64
	}
	if lastSeen.Valid {
		n.LastSeenMS = &lastSeen.Int64
	}
	return &n, nil
}

// Summary aggregates store contents for status output.
type Summary struct {
	Networks          int
	EnrichedNetworks  int
	Observations      int
	ObservationsBySrc map[string]int
	APIObservations   int
	StagedAPINetworks int
}

// Summarize counts canonical and staged rows.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	summary := Summary{ObservationsBySrc: make(map[string]int)}

	row := s.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(api_enriched), 0) FROM networks`)
	if err := row.Scan(&summary.Networks, &summary.EnrichedNetworks); err != nil {
		return Summary{}, fmt.Errorf("count networks: %w", err)
	}

	rows, err := s.Query(ctx, `SELECT source, COUNT(*) FROM observations GROUP BY source`)
	if err != nil {
		return Summary{}, fmt.Errorf("count observations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return Summary{}, err
		}
		summary.ObservationsBySrc[source] = count
		summary.Observations += count
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	row = s.QueryRow(ctx, `SELECT COUNT(*) FROM api_observations`)
	if err := row.Scan(&summary.APIObservations); err != nil {
		return Summary{}, fmt.Errorf("count api observations: %w", err)
	}
	row = s.QueryRow(ctx, `SELECT COUNT(*) FROM api_networks`)
	if err := row.Scan(&summary.StagedAPINetworks); err != nil {
		return Summary{}, fmt.Errorf("count api networks: %w", err)
	}
	return summary, nil
}
