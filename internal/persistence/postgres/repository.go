// Package postgres provides the pgx-backed store adapters for tokens,
// activities and the session event log.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/stride/internal/domain"
)

// TokenRepository persists one OAuth token row per athlete.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// GetToken loads the token row for an athlete, or nil when none exists.
func (r *TokenRepository) GetToken(ctx context.Context, athleteID int64) (*domain.AthleteToken, error) {
	const query = `SELECT athlete_id, access_token, refresh_token, expires_at
        FROM strava_tokens WHERE athlete_id=$1`

	row := r.pool.QueryRow(ctx, query, athleteID)
	var token domain.AthleteToken
	if err := row.Scan(&token.AthleteID, &token.AccessToken, &token.RefreshToken, &token.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load token: %v", domain.ErrStorage, err)
	}
	return &token, nil
}

// UpsertToken writes the full token tuple in a single statement, keyed by
// athlete_id. Last write wins; the row is never partially updated.
func (r *TokenRepository) UpsertToken(ctx context.Context, token domain.AthleteToken) error {
	const stmt = `INSERT INTO strava_tokens (athlete_id, access_token, refresh_token, expires_at, updated_at)
        VALUES ($1,$2,$3,$4,now())
        ON CONFLICT (athlete_id) DO UPDATE SET
            access_token=EXCLUDED.access_token,
            refresh_token=EXCLUDED.refresh_token,
            expires_at=EXCLUDED.expires_at,
            updated_at=now()`

	if _, err := r.pool.Exec(ctx, stmt, token.AthleteID, token.AccessToken, token.RefreshToken, token.ExpiresAt); err != nil {
		return fmt.Errorf("%w: upsert token: %v", domain.ErrStorage, err)
	}
	return nil
}

const activityColumns = `activity_id, athlete_id, name, sport, type, datetime_local,
        distance, moving_time, elapsed_time, elevation_gain, average_speed, max_speed,
        average_heartrate, max_heartrate, elev_high, elev_low, workout_type`

// ActivityRepository persists normalized activity rows keyed by activity_id.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// GetActivity loads one activity, or nil when none exists.
func (r *ActivityRepository) GetActivity(ctx context.Context, activityID int64) (*domain.Activity, error) {
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE activity_id=$1`, activityColumns)

	row := r.pool.QueryRow(ctx, query, activityID)
	activity, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load activity: %v", domain.ErrStorage, err)
	}
	return activity, nil
}

// UpsertActivity inserts or replaces one activity row. Idempotent: applying
// the same record twice leaves the same stored state.
func (r *ActivityRepository) UpsertActivity(ctx context.Context, activity domain.Activity) error {
	stmt := fmt.Sprintf(`INSERT INTO activities (%s)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        ON CONFLICT (activity_id) DO UPDATE SET
            athlete_id=EXCLUDED.athlete_id,
            name=EXCLUDED.name,
            sport=EXCLUDED.sport,
            type=EXCLUDED.type,
            datetime_local=EXCLUDED.datetime_local,
            distance=EXCLUDED.distance,
            moving_time=EXCLUDED.moving_time,
            elapsed_time=EXCLUDED.elapsed_time,
            elevation_gain=EXCLUDED.elevation_gain,
            average_speed=EXCLUDED.average_speed,
            max_speed=EXCLUDED.max_speed,
            average_heartrate=EXCLUDED.average_heartrate,
            max_heartrate=EXCLUDED.max_heartrate,
            elev_high=EXCLUDED.elev_high,
            elev_low=EXCLUDED.elev_low,
            workout_type=EXCLUDED.workout_type`, activityColumns)

	_, err := r.pool.Exec(ctx, stmt,
		activity.ActivityID,
		activity.AthleteID,
		activity.Name,
		activity.Sport,
		activity.Type,
		activity.DatetimeLocal,
		activity.Distance,
		activity.MovingTime,
		activity.ElapsedTime,
		activity.ElevationGain,
		activity.AverageSpeed,
		activity.MaxSpeed,
		activity.AverageHeartrate,
		activity.MaxHeartrate,
		activity.ElevHigh,
		activity.ElevLow,
		activity.WorkoutType,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert activity %d: %v", domain.ErrStorage, activity.ActivityID, err)
	}
	return nil
}

// ListByAthlete returns all stored activities for an athlete, newest first.
func (r *ActivityRepository) ListByAthlete(ctx context.Context, athleteID int64) ([]domain.Activity, error) {
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE athlete_id=$1
        ORDER BY datetime_local DESC, activity_id DESC`, activityColumns)

	rows, err := r.pool.Query(ctx, query, athleteID)
	if err != nil {
		return nil, fmt.Errorf("%w: list activities: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var results []domain.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list activities: %v", domain.ErrStorage, err)
		}
		results = append(results, *activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list activities: %v", domain.ErrStorage, err)
	}
	return results, nil
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(
		&a.ActivityID,
		&a.AthleteID,
		&a.Name,
		&a.Sport,
		&a.Type,
		&a.DatetimeLocal,
		&a.Distance,
		&a.MovingTime,
		&a.ElapsedTime,
		&a.ElevationGain,
		&a.AverageSpeed,
		&a.MaxSpeed,
		&a.AverageHeartrate,
		&a.MaxHeartrate,
		&a.ElevHigh,
		&a.ElevLow,
		&a.WorkoutType,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SessionLogRepository appends session events to app_logs.
type SessionLogRepository struct {
	pool *pgxpool.Pool
}

// NewSessionLogRepository constructs a SessionLogRepository.
func NewSessionLogRepository(pool *pgxpool.Pool) *SessionLogRepository {
	return &SessionLogRepository{pool: pool}
}

// Append inserts one event row. app_logs is append-only.
func (r *SessionLogRepository) Append(ctx context.Context, event domain.SessionEvent) error {
	var payload any
	if event.EventData != nil {
		encoded, err := json.Marshal(event.EventData)
		if err != nil {
			return fmt.Errorf("%w: encode event: %v", domain.ErrStorage, err)
		}
		payload = encoded
	}

	const stmt = `INSERT INTO app_logs (athlete_id, event_type, event_data) VALUES ($1,$2,$3)`
	if _, err := r.pool.Exec(ctx, stmt, event.AthleteID, event.EventType, payload); err != nil {
		return fmt.Errorf("%w: append log: %v", domain.ErrStorage, err)
	}
	return nil
}
