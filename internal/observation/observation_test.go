package observation_test

import (
	"errors"
	"testing"

	"netsight/internal/observation"
)

func validObservation() observation.Observation {
	return observation.Observation{
		BSSID:      "AA:BB:CC:DD:EE:FF",
		SSID:       "TestNetwork",
		SignalDBM:  observation.IntPtr(-65),
		Lat:        37.7749,
		Lon:        -122.4194,
		Altitude:   observation.FloatPtr(10.0),
		Accuracy:   observation.FloatPtr(15.0),
		ObservedAt: 1640000000000,
		Source:     observation.SourceKML,
		SourceRef:  "test.kml",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*observation.Observation)
		wantErr bool
	}{
		{"valid", func(o *observation.Observation) {}, false},
		{"missing bssid", func(o *observation.Observation) { o.BSSID = "  " }, true},
		{"lat out of range", func(o *observation.Observation) { o.Lat = 91 }, true},
		{"lon out of range", func(o *observation.Observation) { o.Lon = -181 }, true},
		{"null island", func(o *observation.Observation) { o.Lat, o.Lon = 0, 0 }, true},
		{"missing timestamp", func(o *observation.Observation) { o.ObservedAt = 0 }, true},
		{"unknown source", func(o *observation.Observation) { o.Source = "carrier-pigeon" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := validObservation()
			tc.mutate(&obs)
			err := obs.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, observation.ErrMalformed) {
					t.Fatalf("expected ErrMalformed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
		})
	}
}

func TestFingerprintStableAcrossSources(t *testing.T) {
	first := validObservation()
	second := validObservation()
	second.Source = observation.SourceBackup
	second.SourceRef = "backup-123.sqlite"
	second.SSID = "RenamedNetwork"

	if first.Fingerprint() != second.Fingerprint() {
		t.Fatal("fingerprint should ignore provenance and display fields")
	}
}

func TestFingerprintDistinguishesAbsentFromZero(t *testing.T) {
	withSignal := validObservation()
	withSignal.SignalDBM = observation.IntPtr(0)
	withoutSignal := validObservation()
	withoutSignal.SignalDBM = nil

	if withSignal.Fingerprint() == withoutSignal.Fingerprint() {
		t.Fatal("zero signal and absent signal must not collide")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := validObservation()
	changed := validObservation()
	changed.ObservedAt++
	if base.Fingerprint() == changed.Fingerprint() {
		t.Fatal("timestamp change must alter fingerprint")
	}

	moved := validObservation()
	moved.Lat += 0.00001
	if base.Fingerprint() == moved.Fingerprint() {
		t.Fatal("coordinate change must alter fingerprint")
	}
}

func TestObservedDay(t *testing.T) {
	obs := validObservation()
	// 1640000000000 ms = 2021-12-20T11:33:20Z
	if got := obs.ObservedDay(); got != "2021-12-20" {
		t.Fatalf("unexpected day bucket: %s", got)
	}
}

func TestParseSource(t *testing.T) {
	if src, ok := observation.ParseSource(" KML "); !ok || src != observation.SourceKML {
		t.Fatalf("unexpected parse result: %v %v", src, ok)
	}
	if _, ok := observation.ParseSource("telegraph"); ok {
		t.Fatal("expected unknown source to be rejected")
	}
}
