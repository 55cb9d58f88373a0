package wigle

import (
	"time"

	"netsight/internal/observation"
)

// NetworkDetail is the flattened authoritative record for one entity.
type NetworkDetail struct {
	BSSID           string
	SSID            string
	Type            string
	Encryption      string
	Channel         *int
	BcnInterval     *int
	TrilateratedLat *float64
	TrilateratedLon *float64
	QoS             *int
	FirstSeen       *time.Time
	LastSeen        *time.Time
	LastUpdate      *time.Time
	StreetAddress   map[string]string
	Observations    []observation.Observation
}

// detailResponse mirrors the relevant slice of the v3 detail payload.
type detailResponse struct {
	NetworkID              string            `json:"networkId"`
	Type                   string            `json:"type"`
	Encryption             string            `json:"encryption"`
	Channel                *int              `json:"channel"`
	BcnInterval            *int              `json:"bcninterval"`
	TrilateratedLatitude   *float64          `json:"trilateratedLatitude"`
	TrilateratedLongitude  *float64          `json:"trilateratedLongitude"`
	BestClusterWiGLEQoS    *int              `json:"bestClusterWiGLEQoS"`
	FirstSeen              string            `json:"firstSeen"`
	LastSeen               string            `json:"lastSeen"`
	LastUpdate             string            `json:"lastUpdate"`
	StreetAddress          map[string]string `json:"streetAddress"`
	LocationClusters       []locationCluster `json:"locationClusters"`
}

type locationCluster struct {
	ClusterSSID string           `json:"clusterSsid"`
	Locations   []detailLocation `json:"locations"`
}

type detailLocation struct {
	SSID      string   `json:"ssid"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Alt       *float64 `json:"alt"`
	Accuracy  *float64 `json:"accuracy"`
	Time      string   `json:"time"`
	Signal    *int     `json:"signal"`
	Noise     *int     `json:"noise"`
	SNR       *int     `json:"snr"`
	Frequency *int     `json:"frequency"`
	Channel   *int     `json:"channel"`
	Month     string   `json:"month"`
}

func (r detailResponse) flatten() *NetworkDetail {
	detail := &NetworkDetail{
		BSSID:           r.NetworkID,
		Type:            r.Type,
		Encryption:      r.Encryption,
		Channel:         r.Channel,
		BcnInterval:     r.BcnInterval,
		TrilateratedLat: r.TrilateratedLatitude,
		TrilateratedLon: r.TrilateratedLongitude,
		QoS:             r.BestClusterWiGLEQoS,
		FirstSeen:       parseAPITime(r.FirstSeen),
		LastSeen:        parseAPITime(r.LastSeen),
		LastUpdate:      parseAPITime(r.LastUpdate),
		StreetAddress:   r.StreetAddress,
	}

	for _, cluster := range r.LocationClusters {
		if detail.SSID == "" {
			detail.SSID = cluster.ClusterSSID
		}
		for _, loc := range cluster.Locations {
			obs, err := loc.toObservation(r.NetworkID, cluster.ClusterSSID)
			if err != nil {
				continue
			}
			detail.Observations = append(detail.Observations, obs)
		}
	}
	return detail
}

func (l detailLocation) toObservation(bssid, clusterSSID string) (observation.Observation, error) {
	if l.Latitude == nil || l.Longitude == nil {
		return observation.Observation{}, errNoLocation
	}
	ssid := l.SSID
	if ssid == "" {
		ssid = clusterSSID
	}

	metadata := map[string]any{}
	if l.Noise != nil {
		metadata["noise"] = *l.Noise
	}
	if l.SNR != nil {
		metadata["snr"] = *l.SNR
	}
	if l.Frequency != nil {
		metadata["frequency"] = *l.Frequency
	}
	if l.Channel != nil {
		metadata["channel"] = *l.Channel
	}
	if l.Month != "" {
		metadata["month"] = l.Month
	}

	var observedAt int64
	if ts := parseAPITime(l.Time); ts != nil {
		observedAt = ts.UnixMilli()
	}

	return observation.Observation{
		BSSID:      bssid,
		SSID:       ssid,
		SignalDBM:  l.Signal,
		Lat:        *l.Latitude,
		Lon:        *l.Longitude,
		Altitude:   l.Alt,
		Accuracy:   l.Accuracy,
		ObservedAt: observedAt,
		Source:     observation.SourceAPI,
		SourceRef:  "wigle:" + bssid,
		Metadata:   metadata,
	}, nil
}

var apiTimeLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"20060102-00000",
}

func parseAPITime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range apiTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}
