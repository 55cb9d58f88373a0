package observation

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source identifies which producer emitted an observation.
type Source string

const (
	// SourceBackup marks observations extracted from a handheld-device
	// database backup.
	SourceBackup Source = "backup"
	// SourceKML marks observations parsed from a KML geographic export.
	SourceKML Source = "kml"
	// SourceAPI marks observations fetched from the authoritative lookup API.
	SourceAPI Source = "wigle_api"
)

var knownSources = map[Source]struct{}{
	SourceBackup: {},
	SourceKML:    {},
	SourceAPI:    {},
}

// ParseSource converts a string into a known Source.
func ParseSource(value string) (Source, bool) {
	normalized := Source(strings.ToLower(strings.TrimSpace(value)))
	_, ok := knownSources[normalized]
	return normalized, ok
}

// Observation is one normalized sighting of a wireless transceiver.
// Optional numeric fields use pointers so absence survives the round trip
// into nullable store columns.
type Observation struct {
	BSSID       string
	SSID        string
	NetworkType string
	Encryption  string
	SignalDBM   *int
	Lat         float64
	Lon         float64
	Altitude    *float64
	Accuracy    *float64
	ObservedAt  int64 // epoch milliseconds
	Source      Source
	SourceRef   string // originating file or batch
	Metadata    map[string]any
}

// ErrMalformed marks records rejected by validation. Callers count these
// separately from duplicates and store failures.
var ErrMalformed = errors.New("malformed observation")

// Validate rejects records that cannot be persisted: missing entity
// identifier, out-of-range coordinates, the (0,0) null-island artifact
// common in wardriving exports, and missing timestamps.
func (o Observation) Validate() error {
	if strings.TrimSpace(o.BSSID) == "" {
		return fmt.Errorf("%w: missing bssid", ErrMalformed)
	}
	if o.Lat < -90 || o.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrMalformed, o.Lat)
	}
	if o.Lon < -180 || o.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrMalformed, o.Lon)
	}
	if o.Lat == 0 && o.Lon == 0 {
		return fmt.Errorf("%w: null-island coordinates", ErrMalformed)
	}
	if o.ObservedAt <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrMalformed)
	}
	if _, ok := knownSources[o.Source]; !ok {
		return fmt.Errorf("%w: unknown source %q", ErrMalformed, o.Source)
	}
	return nil
}

// Fingerprint derives the deduplication key for this sighting. Two records
// with the same entity, signal, coordinates, altitude, accuracy, and
// timestamp hash to the same value regardless of which producer emitted
// them. Absent optional fields are encoded distinctly from zero values so a
// record without a signal reading never collides with one at 0 dBm.
func (o Observation) Fingerprint() string {
	var b strings.Builder
	b.Grow(96)
	b.WriteString(strings.ToUpper(strings.TrimSpace(o.BSSID)))
	b.WriteByte('|')
	if o.SignalDBM != nil {
		b.WriteString(strconv.Itoa(*o.SignalDBM))
	}
	b.WriteByte('|')
	b.WriteString(formatCoordinate(o.Lat))
	b.WriteByte('|')
	b.WriteString(formatCoordinate(o.Lon))
	b.WriteByte('|')
	if o.Altitude != nil {
		b.WriteString(formatCoordinate(*o.Altitude))
	}
	b.WriteByte('|')
	if o.Accuracy != nil {
		b.WriteString(formatCoordinate(*o.Accuracy))
	}
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(o.ObservedAt, 10))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ObservedDay returns the UTC calendar day of the sighting, used by the
// merge engine's same-day duplicate heuristic.
func (o Observation) ObservedDay() string {
	return time.UnixMilli(o.ObservedAt).UTC().Format("2006-01-02")
}

func formatCoordinate(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// IntPtr is a convenience constructor for optional signal readings.
func IntPtr(v int) *int { return &v }

// FloatPtr is a convenience constructor for optional measurements.
func FloatPtr(v float64) *float64 { return &v }
