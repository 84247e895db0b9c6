package types

// DateLayout is the canonical storage and wire format for measurement dates.
// Dates in this layout compare correctly as plain strings.
const DateLayout = "2006-01-02"

type Measurement struct {
	ID      int64
	Station string
	Date    string
	// Prcp is precipitation in inches; nil when the station reported none.
	Prcp *float64
	// Tobs is the observed temperature in °F.
	Tobs float64
}

type Station struct {
	ID        int64
	Station   string
	Name      string
	Latitude  float64
	Longitude float64
	Elevation float64
}

// MeasurementFilter selects measurements. Empty fields do not filter.
// From and To are inclusive YYYY-MM-DD bounds.
type MeasurementFilter struct {
	From    string
	To      string
	Station string
}

// Matches reports whether m passes the filter.
func (f MeasurementFilter) Matches(m Measurement) bool {
	if f.From != "" && m.Date < f.From {
		return false
	}
	if f.To != "" && m.Date > f.To {
		return false
	}
	if f.Station != "" && m.Station != f.Station {
		return false
	}
	return true
}

// TemperatureStats holds min/avg/max of tobs. All fields are nil when no
// measurement matched; that is a valid result, not a failure.
type TemperatureStats struct {
	Min *float64
	Avg *float64
	Max *float64
}

func (s TemperatureStats) Empty() bool {
	return s.Min == nil && s.Avg == nil && s.Max == nil
}

type StationRecord struct {
	Station string `json:"station"`
}

type TemperatureObservation struct {
	Date string  `json:"date"`
	Tobs float64 `json:"tobs"`
}

type DateStats struct {
	Date string   `json:"date"`
	TMin *float64 `json:"TMIN"`
	TAvg *float64 `json:"TAVG"`
	TMax *float64 `json:"TMAX"`
}

type RangeStats struct {
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	TMin      *float64 `json:"TMIN"`
	TAvg      *float64 `json:"TAVG"`
	TMax      *float64 `json:"TMAX"`
}
