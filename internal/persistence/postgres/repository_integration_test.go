//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/stride/internal/domain"
)

func startDatabase(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("stride"),
		postgrescontainer.WithUsername("stride"),
		postgrescontainer.WithPassword("stride"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestTokenUpsertIsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t)
	repo := NewTokenRepository(pool)

	first := domain.AthleteToken{
		AthleteID:    42,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(6 * time.Hour).UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.UpsertToken(ctx, first))

	second := first
	second.AccessToken = "access-2"
	second.RefreshToken = "refresh-2"
	second.ExpiresAt = first.ExpiresAt.Add(6 * time.Hour)
	require.NoError(t, repo.UpsertToken(ctx, second))

	stored, err := repo.GetToken(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "access-2", stored.AccessToken)
	require.Equal(t, "refresh-2", stored.RefreshToken)
	require.True(t, stored.ExpiresAt.Equal(second.ExpiresAt))

	missing, err := repo.GetToken(ctx, 999)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestActivityUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t)
	repo := NewActivityRepository(pool)

	hr := 151.0
	activity := domain.Activity{
		ActivityID:       9001,
		AthleteID:        42,
		Name:             "Morning Run",
		Sport:            "Run",
		Type:             "TrailRun",
		DatetimeLocal:    time.Date(2025, time.March, 14, 7, 30, 0, 0, time.UTC),
		Distance:         10.0,
		MovingTime:       50.0,
		ElapsedTime:      60.0,
		ElevationGain:    120.0,
		AverageSpeed:     12.0,
		MaxSpeed:         18.5,
		AverageHeartrate: &hr,
	}

	require.NoError(t, repo.UpsertActivity(ctx, activity))
	require.NoError(t, repo.UpsertActivity(ctx, activity))

	listed, err := repo.ListByAthlete(ctx, 42)
	require.NoError(t, err)
	require.Len(t, listed, 1, "double upsert must leave one row")
	require.Equal(t, activity.Distance, listed[0].Distance)
	require.NotNil(t, listed[0].AverageHeartrate)
	require.Equal(t, hr, *listed[0].AverageHeartrate)

	// Re-fetch with corrected values overwrites in place.
	activity.Name = "Morning Run (corrected)"
	activity.Distance = 10.2
	require.NoError(t, repo.UpsertActivity(ctx, activity))

	stored, err := repo.GetActivity(ctx, 9001)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "Morning Run (corrected)", stored.Name)
	require.Equal(t, 10.2, stored.Distance)
}

func TestSessionLogAppend(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t)
	repo := NewSessionLogRepository(pool)

	err := repo.Append(ctx, domain.SessionEvent{
		AthleteID: 42,
		EventType: "sync_completed",
		EventData: map[string]any{"stored": 3},
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM app_logs WHERE athlete_id=42`).Scan(&count))
	require.Equal(t, 1, count)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
		"../../../db/postgres/migrations/0002_app_logs.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(thisFile), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				pool.Close()
				return nil
			}
			pool.Close()
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(500 * time.Millisecond)
	}
}
