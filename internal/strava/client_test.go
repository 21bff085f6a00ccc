package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"example.com/stride/internal/domain"
)

func testClient(baseURL string, perPage int) *Client {
	return NewClient(
		WithBaseURL(baseURL),
		WithPerPage(perPage),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
}

func rawActivity(id int64) SummaryActivity {
	raw := SummaryActivity{
		ID:                 id,
		Name:               fmt.Sprintf("Morning Run %d", id),
		Type:               "Run",
		SportType:          "TrailRun",
		StartDateLocal:     "2025-03-14T07:30:00Z",
		Distance:           10000,
		MovingTime:         3000,
		ElapsedTime:        3600,
		TotalElevationGain: 120,
		AverageSpeed:       5,
		MaxSpeed:           7.5,
	}
	raw.Athlete.ID = 42
	return raw
}

func TestFetchAllStopsOnShortPage(t *testing.T) {
	pageSizes := []int{200, 200, 47}
	var requests int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "200", r.URL.Query().Get("per_page"))

		requests++
		page := requests
		require.Equal(t, fmt.Sprint(page), r.URL.Query().Get("page"))

		batch := make([]SummaryActivity, pageSizes[page-1])
		for i := range batch {
			batch[i] = rawActivity(int64(page*1000 + i))
		}
		_ = json.NewEncoder(w).Encode(batch)
	}))
	defer server.Close()

	client := testClient(server.URL, 200)
	activities, err := client.FetchAll(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Len(t, activities, 447)
	require.Equal(t, 3, requests, "fetch must stop after the first short page")
}

func TestFetchAllAbortsOnErrorStatus(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		batch := make([]SummaryActivity, 2)
		for i := range batch {
			batch[i] = rawActivity(int64(i))
		}
		_ = json.NewEncoder(w).Encode(batch)
	}))
	defer server.Close()

	client := testClient(server.URL, 2)
	activities, err := client.FetchAll(context.Background(), "tok-1")
	require.ErrorIs(t, err, domain.ErrFetch)
	require.Nil(t, activities, "no partial results on failure")
}

func TestFetchAllAbortsOnMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer server.Close()

	client := testClient(server.URL, 200)
	_, err := client.FetchAll(context.Background(), "tok-1")
	require.ErrorIs(t, err, domain.ErrFetch)
}

func TestNormalizeConvertsUnits(t *testing.T) {
	raw := rawActivity(9001)
	hr := 152.3
	raw.AverageHeartrate = &hr
	workout := 1
	raw.WorkoutType = &workout

	activity, err := Normalize(raw)
	require.NoError(t, err)

	require.Equal(t, int64(9001), activity.ActivityID)
	require.Equal(t, int64(42), activity.AthleteID)
	require.Equal(t, "Run", activity.Sport)
	require.Equal(t, "TrailRun", activity.Type)
	require.Equal(t, 10.0, activity.Distance)
	require.Equal(t, 18.0, activity.AverageSpeed)
	require.Equal(t, 27.0, activity.MaxSpeed)
	require.Equal(t, 50.0, activity.MovingTime)
	require.Equal(t, 60.0, activity.ElapsedTime)
	require.Equal(t, 120.0, activity.ElevationGain)
	require.Equal(t, time.Date(2025, time.March, 14, 7, 30, 0, 0, time.UTC), activity.DatetimeLocal)
	require.NotNil(t, activity.AverageHeartrate)
	require.Equal(t, 152.3, *activity.AverageHeartrate)
	require.NotNil(t, activity.WorkoutType)
	require.Equal(t, "1", *activity.WorkoutType)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	raw := rawActivity(7)
	first, err := Normalize(raw)
	require.NoError(t, err)
	second, err := Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestNormalizeRejectsBadTimestamp(t *testing.T) {
	raw := rawActivity(8)
	raw.StartDateLocal = "yesterday"
	_, err := Normalize(raw)
	require.Error(t, err)
}
