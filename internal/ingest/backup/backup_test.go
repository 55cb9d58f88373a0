package backup

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"netsight/internal/observation"
)

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.sqlite")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer db.Close()

	statements := []string{
		`CREATE TABLE network (
			bssid TEXT PRIMARY KEY,
			ssid TEXT,
			frequency INTEGER,
			capabilities TEXT,
			type TEXT
		)`,
		`CREATE TABLE location (
			_id INTEGER PRIMARY KEY,
			bssid TEXT,
			level INTEGER,
			lat REAL,
			lon REAL,
			altitude REAL,
			accuracy REAL,
			time INTEGER
		)`,
		`INSERT INTO network VALUES
			('AA:BB:CC:DD:EE:FF', 'corner-cafe', 2437, '[WPA2-PSK-CCMP][ESS]', 'W'),
			('11:22:33:44:55:66', 'lonely-ap', 5180, '[ESS]', 'W')`,
		`INSERT INTO location (bssid, level, lat, lon, altitude, accuracy, time) VALUES
			('AA:BB:CC:DD:EE:FF', -61, 40.7433, -74.0091, 12.5, 4.0, 1640000000000),
			('AA:BB:CC:DD:EE:FF', -70, 40.7434, -74.0092, 0, 0, 1640000060000)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed export: %v", err)
		}
	}
	return path
}

func TestParse(t *testing.T) {
	adapter := New()
	records, err := adapter.Parse(context.Background(), writeExport(t))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 sightings, got %d", len(records))
	}

	first := records[0]
	if first.BSSID != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("bssid = %q", first.BSSID)
	}
	if first.SSID != "corner-cafe" {
		t.Errorf("ssid = %q", first.SSID)
	}
	if first.Encryption != "[WPA2-PSK-CCMP][ESS]" {
		t.Errorf("encryption = %q", first.Encryption)
	}
	if first.Source != observation.SourceBackup {
		t.Errorf("source = %q", first.Source)
	}
	if first.SignalDBM == nil || *first.SignalDBM != -61 {
		t.Errorf("signal = %v", first.SignalDBM)
	}
	if first.Altitude == nil || *first.Altitude != 12.5 {
		t.Errorf("altitude = %v", first.Altitude)
	}
	if first.ObservedAt != 1640000000000 {
		t.Errorf("observed_at = %d", first.ObservedAt)
	}
	if err := first.Validate(); err != nil {
		t.Errorf("first sighting should validate: %v", err)
	}

	// Zero altitude and accuracy mean the sensor had nothing to report.
	second := records[1]
	if second.Altitude != nil || second.Accuracy != nil {
		t.Errorf("zero sensor values should map to absent, got alt=%v acc=%v",
			second.Altitude, second.Accuracy)
	}

	// The unlocated entity contributes no sightings.
	for _, obs := range records {
		if obs.BSSID == "11:22:33:44:55:66" {
			t.Error("entity without location rows should not be emitted")
		}
	}
}

func TestParseMissingFile(t *testing.T) {
	adapter := New()
	if _, err := adapter.Parse(context.Background(), filepath.Join(t.TempDir(), "absent.sqlite")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
