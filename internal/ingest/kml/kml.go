// Package kml parses survey exports in KML form into normalized
// observations. Each placemark carries its capture attributes as key/value
// lines inside the description CDATA block and its position as a
// "lon,lat[,alt]" coordinate triple.
package kml

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"netsight/internal/observation"
)

// Adapter parses KML survey exports.
type Adapter struct{}

// New constructs the KML adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name identifies the adapter for format selection.
func (a *Adapter) Name() string {
	return "kml"
}

type document struct {
	Placemarks []placemark `xml:"Document>Folder>Placemark"`
}

type placemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Coordinates string `xml:"Point>coordinates"`
}

var descriptionField = regexp.MustCompile(`(?m)^\s*([A-Za-z ]+?):\s*(.+?)\s*$`)

var timeLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05 MST",
}

// Parse reads a KML file and converts every placemark that carries a
// hardware address and a position. Placemarks without either are dropped
// silently; downstream validation decides everything else.
func (a *Adapter) Parse(ctx context.Context, path string) ([]observation.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kml: %w", err)
	}

	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse kml: %w", err)
	}

	observations := make([]observation.Observation, 0, len(doc.Placemarks))
	for _, pm := range doc.Placemarks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		obs, ok := pm.toObservation()
		if !ok {
			continue
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

func (pm placemark) toObservation() (observation.Observation, bool) {
	fields := parseDescription(pm.Description)
	bssid := fields["network id"]
	if bssid == "" {
		return observation.Observation{}, false
	}

	lat, lon, alt, ok := parseCoordinates(pm.Coordinates)
	if !ok {
		return observation.Observation{}, false
	}

	obs := observation.Observation{
		BSSID:       bssid,
		SSID:        strings.TrimSpace(pm.Name),
		NetworkType: fields["type"],
		Encryption:  fields["encryption"],
		Lat:         lat,
		Lon:         lon,
		Altitude:    alt,
		Source:      observation.SourceKML,
	}

	if signal, err := strconv.Atoi(strings.TrimSuffix(fields["signal"], " dBm")); err == nil {
		obs.SignalDBM = observation.IntPtr(signal)
	}
	if accuracy, err := strconv.ParseFloat(strings.TrimSuffix(fields["accuracy"], " m"), 64); err == nil {
		obs.Accuracy = observation.FloatPtr(accuracy)
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, fields["time"]); err == nil {
			obs.ObservedAt = ts.UnixMilli()
			break
		}
	}
	return obs, true
}

// parseDescription splits the "Key: value" lines of a placemark description.
// HTML line breaks are normalized first since exports disagree on them.
func parseDescription(description string) map[string]string {
	normalized := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(description)
	fields := make(map[string]string)
	for _, match := range descriptionField.FindAllStringSubmatch(normalized, -1) {
		key := strings.ToLower(strings.TrimSpace(match[1]))
		fields[key] = strings.TrimSpace(match[2])
	}
	return fields
}

func parseCoordinates(raw string) (lat, lon float64, alt *float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) < 2 {
		return 0, 0, nil, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, nil, false
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, nil, false
	}
	if len(parts) > 2 {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err == nil && parsed != 0 {
			alt = &parsed
		}
	}
	return lat, lon, alt, true
}
