package strava

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/stride/internal/domain"
)

// localLayout matches Strava's start_date_local once the trailing Z is
// stripped; the value is wall-clock local time, not UTC.
const localLayout = "2006-01-02T15:04:05"

// Normalize converts a raw Strava record into the canonical storage shape.
// Pure function: meters become kilometers, m/s becomes km/h, seconds become
// minutes. Strava labels the listing's "type" as sport and "sport_type" as
// the finer-grained type, and the stored columns keep that mapping.
func Normalize(raw SummaryActivity) (domain.Activity, error) {
	started, err := parseLocal(raw.StartDateLocal)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("activity %d: bad start_date_local %q: %w", raw.ID, raw.StartDateLocal, err)
	}

	var workout *string
	if raw.WorkoutType != nil {
		s := strconv.Itoa(*raw.WorkoutType)
		workout = &s
	}

	return domain.Activity{
		ActivityID:       raw.ID,
		AthleteID:        raw.Athlete.ID,
		Name:             raw.Name,
		Sport:            raw.Type,
		Type:             raw.SportType,
		DatetimeLocal:    started,
		Distance:         raw.Distance / 1000,
		MovingTime:       raw.MovingTime / 60,
		ElapsedTime:      raw.ElapsedTime / 60,
		ElevationGain:    raw.TotalElevationGain,
		AverageSpeed:     raw.AverageSpeed * 3.6,
		MaxSpeed:         raw.MaxSpeed * 3.6,
		AverageHeartrate: raw.AverageHeartrate,
		MaxHeartrate:     raw.MaxHeartrate,
		ElevHigh:         raw.ElevHigh,
		ElevLow:          raw.ElevLow,
		WorkoutType:      workout,
	}, nil
}

func parseLocal(value string) (time.Time, error) {
	trimmed := strings.TrimSuffix(value, "Z")
	return time.Parse(localLayout, trimmed)
}
