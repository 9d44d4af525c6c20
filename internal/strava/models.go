package strava

import "time"

// Activity is the summary activity returned by /athlete/activities,
// trimmed to the fields the challenge uses
type Activity struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	SportType      string    `json:"sport_type"`
	StartDate      time.Time `json:"start_date"`
	StartDateLocal time.Time `json:"start_date_local"`
	Timezone       string    `json:"timezone"`
	Distance       float64   `json:"distance"`     // meters
	MovingTime     int       `json:"moving_time"`  // seconds
	ElapsedTime    int       `json:"elapsed_time"` // seconds
}

// Category is the sport type, falling back to the legacy type field
func (a Activity) Category() string {
	if a.SportType != "" {
		return a.SportType
	}
	return a.Type
}

// LocalStart returns the activity's start as a wall-clock time in loc.
// Strava encodes start_date_local as the athlete's wall clock with a Z
// suffix, so its fields are read as-is rather than converted.
func (a Activity) LocalStart(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	if a.StartDateLocal.IsZero() {
		return a.StartDate.In(loc)
	}
	l := a.StartDateLocal
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), loc)
}
