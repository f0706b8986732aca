package qso

// StationProfile describes an operating setup that contacts can be attributed to.
type StationProfile struct {
	ID               string  `json:"id" yaml:"id"`
	Name             string  `json:"name" yaml:"name"`
	OperatorCallsign string  `json:"operator_callsign,omitempty" yaml:"operator_callsign,omitempty"`
	Rig              string  `json:"rig,omitempty" yaml:"rig,omitempty"`
	Antenna          string  `json:"antenna,omitempty" yaml:"antenna,omitempty"`
	DefaultBand      string  `json:"default_band" yaml:"default_band"`
	DefaultMode      string  `json:"default_mode" yaml:"default_mode"`
	DefaultPowerW    float64 `json:"default_power_w" yaml:"default_power_w"`
	IsDefault        bool    `json:"is_default" yaml:"is_default"`
}

// DefaultStations returns the profiles seeded into an empty logbook.
func DefaultStations() []StationProfile {
	return []StationProfile{
		{Name: "Home", DefaultBand: "20m", DefaultMode: "SSB", DefaultPowerW: 100, IsDefault: true},
		{Name: "Portable", DefaultBand: "40m", DefaultMode: "CW", DefaultPowerW: 50},
		{Name: "Mobile", DefaultBand: "2m", DefaultMode: "FM", DefaultPowerW: 25},
	}
}

// DefaultStation returns the profile flagged as default, falling back to the
// first profile. ok is false when stations is empty.
func DefaultStation(stations []StationProfile) (StationProfile, bool) {
	for _, s := range stations {
		if s.IsDefault {
			return s, true
		}
	}
	if len(stations) == 0 {
		return StationProfile{}, false
	}
	return stations[0], true
}
