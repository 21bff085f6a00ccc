// Package domain defines the core entities and error taxonomy for the
// training dashboard.
package domain

import "time"

// Activity is the canonical, unit-normalized workout record stored in
// PostgreSQL. Distances are kilometers, speeds km/h, durations minutes.
type Activity struct {
	ActivityID       int64
	AthleteID        int64
	Name             string
	Sport            string
	Type             string
	DatetimeLocal    time.Time
	Distance         float64
	MovingTime       float64
	ElapsedTime      float64
	ElevationGain    float64
	AverageSpeed     float64
	MaxSpeed         float64
	AverageHeartrate *float64
	MaxHeartrate     *float64
	ElevHigh         *float64
	ElevLow          *float64
	WorkoutType      *string
}

// AthleteToken is the OAuth credential pair for a single athlete. Exactly one
// row per athlete; every refresh overwrites the full tuple.
type AthleteToken struct {
	AthleteID    int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is unusable at instant now, with
// margin subtracted from the stored expiry so tokens about to lapse mid-sync
// count as expired.
func (t AthleteToken) Expired(now time.Time, margin time.Duration) bool {
	return !t.ExpiresAt.After(now.Add(margin))
}

// SessionEvent is an append-only entry in the app_logs table.
type SessionEvent struct {
	AthleteID int64
	EventType string
	EventData map[string]any
}
