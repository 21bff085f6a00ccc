package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartMetric selects which weekly series a training-load chart plots.
type ChartMetric string

const (
	MetricDistance ChartMetric = "distance"
	MetricTime     ChartMetric = "time"
)

// RenderTrainingLoad renders a weekly training-load bar chart as PNG bytes:
// one bar per ISO week, distance in kilometers or moving time in hours.
func RenderTrainingLoad(buckets []WeekBucket, metric ChartMetric) ([]byte, error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("need at least 1 week of data")
	}

	title := "Weekly distance (km)"
	if metric == MetricTime {
		title = "Weekly time (hours)"
	}

	bars := make([]chart.Value, 0, len(buckets))
	for _, b := range buckets {
		value := b.DistanceKm
		if metric == MetricTime {
			value = b.TimeHours
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("W%02d", b.Week),
			Value: value,
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("fc4c02"), // strava orange
				StrokeColor: drawing.ColorFromHex("fc4c02"),
			},
		})
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    900,
		Height:   400,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
