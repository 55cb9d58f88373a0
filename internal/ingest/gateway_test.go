package ingest

import (
	"context"
	"testing"
	"time"

	"netsight/internal/observation"
	"netsight/internal/services/wigle"
	"netsight/internal/testsupport"
)

func sampleObservation() observation.Observation {
	return observation.Observation{
		BSSID:      "AA:BB:CC:DD:EE:FF",
		SSID:       "corner-cafe",
		Encryption: "WPA2",
		SignalDBM:  observation.IntPtr(-61),
		Lat:        40.7433,
		Lon:        -74.0091,
		ObservedAt: 1640000000000,
		Source:     observation.SourceBackup,
	}
}

func TestInsertOneDeduplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	gateway := NewGateway(s, nil)
	ctx := context.Background()

	inserted, err := gateway.InsertOne(ctx, sampleObservation())
	if err != nil {
		t.Fatalf("InsertOne: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should succeed")
	}

	inserted, err = gateway.InsertOne(ctx, sampleObservation())
	if err != nil {
		t.Fatalf("InsertOne repeat: %v", err)
	}
	if inserted {
		t.Fatal("identical observation should be classified as duplicate")
	}

	var count int
	if err := s.QueryRow(ctx, "SELECT COUNT(*) FROM observations").Scan(&count); err != nil {
		t.Fatalf("count observations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored observation, got %d", count)
	}
}

func TestInsertOneRejectsMalformed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	gateway := NewGateway(s, nil)

	obs := sampleObservation()
	obs.BSSID = ""
	if _, err := gateway.InsertOne(context.Background(), obs); err == nil {
		t.Fatal("expected validation error for missing bssid")
	}
}

func TestInsertBatchTallies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	gateway := NewGateway(s, nil)
	ctx := context.Background()

	obs := sampleObservation()
	stats, err := gateway.InsertBatch(ctx, []observation.Observation{obs, obs})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if stats.Total != 2 || stats.Inserted != 1 || stats.Duplicates != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if rate := stats.DuplicateRate(); rate != 50.0 {
		t.Fatalf("expected 50.0 duplicate rate, got %v", rate)
	}
	if stats.Inserted+stats.Duplicates+stats.Skipped != stats.Total {
		t.Fatalf("tallies do not add up: %+v", stats)
	}

	// A second identical batch inserts nothing.
	stats, err = gateway.InsertBatch(ctx, []observation.Observation{obs, obs})
	if err != nil {
		t.Fatalf("InsertBatch rerun: %v", err)
	}
	if stats.Inserted != 0 || stats.Duplicates != 2 {
		t.Fatalf("rerun should be all duplicates: %+v", stats)
	}
}

func TestInsertBatchSkipsMalformed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	gateway := NewGateway(s, nil)

	good := sampleObservation()
	nullIsland := sampleObservation()
	nullIsland.Lat = 0
	nullIsland.Lon = 0
	noTimestamp := sampleObservation()
	noTimestamp.ObservedAt = 0

	stats, err := gateway.InsertBatch(context.Background(),
		[]observation.Observation{good, nullIsland, noTimestamp})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if stats.Inserted != 1 || stats.Skipped != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestInsertBatchEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	gateway := NewGateway(s, nil)

	stats, err := gateway.InsertBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if stats.Total != 0 || stats.DuplicateRate() != 0 {
		t.Fatalf("empty batch should be all zeros: %+v", stats)
	}
}

func TestNetworkUpsertWidensTemporalBounds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	gateway := NewGateway(s, nil)
	ctx := context.Background()

	early := sampleObservation()
	early.ObservedAt = 1630000000000
	late := sampleObservation()
	late.ObservedAt = 1650000000000
	late.SSID = ""
	late.SignalDBM = observation.IntPtr(-70)

	if _, err := gateway.InsertBatch(ctx, []observation.Observation{late, early}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	network, err := s.GetNetwork(ctx, "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("GetNetwork: %v", err)
	}
	if network == nil {
		t.Fatal("expected canonical network row")
	}
	if network.FirstSeenMS == nil || *network.FirstSeenMS != 1630000000000 {
		t.Fatalf("first_seen_ms not widened down: %+v", network.FirstSeenMS)
	}
	if network.LastSeenMS == nil || *network.LastSeenMS != 1650000000000 {
		t.Fatalf("last_seen_ms not widened up: %+v", network.LastSeenMS)
	}
	if network.SSID != "corner-cafe" {
		t.Fatalf("existing ssid should survive a blank sighting, got %q", network.SSID)
	}
	if network.LocalObservationCount != 2 {
		t.Fatalf("expected 2 local observations, got %d", network.LocalObservationCount)
	}
}

func TestStageAPIDetail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	gateway := NewGateway(s, nil)
	ctx := context.Background()

	firstSeen := time.UnixMilli(1620000000000).UTC()
	lat := 40.7434
	lon := -74.0092
	detail := &wigle.NetworkDetail{
		BSSID:           "aa:bb:cc:dd:ee:ff",
		SSID:            "corner-cafe",
		Type:            "infra",
		Encryption:      "wpa3",
		TrilateratedLat: &lat,
		TrilateratedLon: &lon,
		FirstSeen:       &firstSeen,
		StreetAddress:   map[string]string{"city": "Hoboken"},
		Observations: []observation.Observation{
			{
				BSSID:      "AA:BB:CC:DD:EE:FF",
				Lat:        40.7434,
				Lon:        -74.0092,
				ObservedAt: 1640000000000,
				Source:     observation.SourceAPI,
			},
		},
	}

	stats, err := gateway.StageAPIDetail(ctx, detail)
	if err != nil {
		t.Fatalf("StageAPIDetail: %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("expected 1 staged observation, got %+v", stats)
	}

	// Re-staging refreshes the network row and dedupes observations.
	stats, err = gateway.StageAPIDetail(ctx, detail)
	if err != nil {
		t.Fatalf("StageAPIDetail rerun: %v", err)
	}
	if stats.Inserted != 0 || stats.Duplicates != 1 {
		t.Fatalf("rerun should dedupe: %+v", stats)
	}

	var networkCount, obsCount int
	if err := s.QueryRow(ctx, "SELECT COUNT(*) FROM api_networks").Scan(&networkCount); err != nil {
		t.Fatalf("count api_networks: %v", err)
	}
	if err := s.QueryRow(ctx, "SELECT COUNT(*) FROM api_observations").Scan(&obsCount); err != nil {
		t.Fatalf("count api_observations: %v", err)
	}
	if networkCount != 1 || obsCount != 1 {
		t.Fatalf("expected single staged rows, got networks=%d observations=%d", networkCount, obsCount)
	}
}

func TestStageAPIDetailNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	gateway := NewGateway(s, nil)

	if _, err := gateway.StageAPIDetail(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil detail")
	}
}
