// Package report computes aggregate views over stored activities: overall
// totals, a heart-rate intensity distribution, and weekly training-load
// buckets for charting.
package report

import (
	"sort"

	"example.com/stride/internal/domain"
)

// Totals sums the headline metrics over a set of activities.
type Totals struct {
	Activities     int     `json:"activities"`
	DistanceKm     float64 `json:"distance_km"`
	MovingTimeMin  float64 `json:"moving_time_min"`
	ElevationGainM float64 `json:"elevation_gain_m"`
}

// IntensityDistribution buckets sessions by average heart rate relative to
// the athlete's own mean: below 95% of the mean is easy, within ±5% is
// moderate, above is hard. Sessions without heart-rate data are excluded.
type IntensityDistribution struct {
	Easy          int     `json:"easy"`
	Moderate      int     `json:"moderate"`
	Hard          int     `json:"hard"`
	WithHeartrate int     `json:"with_heartrate"`
	MeanHeartrate float64 `json:"mean_heartrate"`
}

// Summary bundles totals with the intensity distribution.
type Summary struct {
	Totals    Totals                `json:"totals"`
	Intensity IntensityDistribution `json:"intensity"`
}

// Summarize computes the Summary for a set of activities.
func Summarize(activities []domain.Activity) Summary {
	var s Summary
	s.Totals.Activities = len(activities)

	var hrSum float64
	var withHR []float64
	for _, a := range activities {
		s.Totals.DistanceKm += a.Distance
		s.Totals.MovingTimeMin += a.MovingTime
		s.Totals.ElevationGainM += a.ElevationGain
		if a.AverageHeartrate != nil {
			hrSum += *a.AverageHeartrate
			withHR = append(withHR, *a.AverageHeartrate)
		}
	}

	if len(withHR) == 0 {
		return s
	}

	mean := hrSum / float64(len(withHR))
	s.Intensity.MeanHeartrate = mean
	s.Intensity.WithHeartrate = len(withHR)
	for _, hr := range withHR {
		switch {
		case hr < mean*0.95:
			s.Intensity.Easy++
		case hr < mean*1.05:
			s.Intensity.Moderate++
		default:
			s.Intensity.Hard++
		}
	}
	return s
}

// WeekBucket aggregates one ISO week of training load.
type WeekBucket struct {
	Year       int     `json:"year"`
	Week       int     `json:"week"`
	DistanceKm float64 `json:"distance_km"`
	TimeHours  float64 `json:"time_hours"`
	Sessions   int     `json:"sessions"`
}

// WeeklyLoad groups activities into ISO-week buckets, oldest first.
func WeeklyLoad(activities []domain.Activity) []WeekBucket {
	type key struct {
		year int
		week int
	}
	buckets := map[key]*WeekBucket{}
	for _, a := range activities {
		year, week := a.DatetimeLocal.ISOWeek()
		k := key{year, week}
		b, ok := buckets[k]
		if !ok {
			b = &WeekBucket{Year: year, Week: week}
			buckets[k] = b
		}
		b.DistanceKm += a.Distance
		b.TimeHours += a.MovingTime / 60
		b.Sessions++
	}

	out := make([]WeekBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Week < out[j].Week
	})
	return out
}
