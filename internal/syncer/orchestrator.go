// Package syncer composes the token manager, fetcher and activity store into
// the user-triggered sync flow.
package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"example.com/stride/internal/domain"
	"example.com/stride/internal/observability"
)

// State names one step of a sync pass.
type State string

const (
	StateIdle        State = "idle"
	StateAuthorizing State = "authorizing"
	StateTokenValid  State = "token_valid"
	StateFetching    State = "fetching"
	StateStoring     State = "storing"
	StateDone        State = "done"
	StateError       State = "error"
)

// TokenProvider yields a usable access token for an athlete.
type TokenProvider interface {
	ValidToken(ctx context.Context, athleteID int64) (domain.AthleteToken, error)
}

// Fetcher retrieves the athlete's full normalized activity history.
type Fetcher interface {
	FetchAll(ctx context.Context, accessToken string) ([]domain.Activity, error)
}

// ActivityStore upserts normalized activity rows.
type ActivityStore interface {
	UpsertActivity(ctx context.Context, activity domain.Activity) error
}

// SessionLog appends audit events. Log failures never fail a sync.
type SessionLog interface {
	Append(ctx context.Context, event domain.SessionEvent) error
}

// Result is the terminal outcome of one sync pass.
type Result struct {
	State   State
	Fetched int
	Stored  int
	Err     error
}

// Kind returns the error taxonomy name, empty on success.
func (r Result) Kind() string {
	return domain.Kind(r.Err)
}

// Orchestrator drives one sync at a time through
// authorizing → token_valid → fetching → storing → done, failing straight to
// the error state with the originating error. Nothing is retried; a failed
// sync needs a fresh user-triggered attempt.
type Orchestrator struct {
	tokens  TokenProvider
	fetcher Fetcher
	store   ActivityStore
	logbook SessionLog
	logger  zerolog.Logger

	// Serializes syncs: one pass runs to completion before the next starts.
	mu sync.Mutex
}

// NewOrchestrator constructs an Orchestrator. logbook may be nil.
func NewOrchestrator(tokens TokenProvider, fetcher Fetcher, store ActivityStore, logbook SessionLog, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		tokens:  tokens,
		fetcher: fetcher,
		store:   store,
		logbook: logbook,
		logger:  logger,
	}
}

// Run executes one sync pass for the athlete and reports the terminal state.
func (o *Orchestrator) Run(ctx context.Context, athleteID int64) Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	logger := o.logger.With().Int64("athlete_id", athleteID).Logger()
	o.record(ctx, athleteID, "sync_started", nil)

	logger.Debug().Str("state", string(StateAuthorizing)).Msg("sync transition")
	token, err := o.tokens.ValidToken(ctx, athleteID)
	if err != nil {
		return o.fail(ctx, logger, athleteID, StateAuthorizing, err)
	}
	logger.Debug().Str("state", string(StateTokenValid)).Msg("sync transition")

	logger.Debug().Str("state", string(StateFetching)).Msg("sync transition")
	activities, err := o.fetcher.FetchAll(ctx, token.AccessToken)
	if err != nil {
		return o.fail(ctx, logger, athleteID, StateFetching, err)
	}

	logger.Debug().Str("state", string(StateStoring)).Int("fetched", len(activities)).Msg("sync transition")
	stored := 0
	for _, activity := range activities {
		if err := o.store.UpsertActivity(ctx, activity); err != nil {
			result := o.fail(ctx, logger, athleteID, StateStoring, err)
			result.Fetched = len(activities)
			result.Stored = stored
			return result
		}
		stored++
	}

	now := time.Now().UTC()
	observability.RecordSyncResult(string(StateDone))
	observability.RecordActivitiesStored(stored)
	observability.RecordSyncSuccess(now)
	o.record(ctx, athleteID, "sync_completed", map[string]any{"fetched": len(activities), "stored": stored})
	logger.Info().Int("fetched", len(activities)).Int("stored", stored).Msg("sync completed")

	return Result{State: StateDone, Fetched: len(activities), Stored: stored}
}

func (o *Orchestrator) fail(ctx context.Context, logger zerolog.Logger, athleteID int64, from State, err error) Result {
	kind := domain.Kind(err)
	observability.RecordSyncResult(kind)
	o.record(ctx, athleteID, "sync_failed", map[string]any{"state": string(from), "kind": kind})
	logger.Warn().Err(err).Str("state", string(from)).Str("kind", kind).Msg("sync failed")
	return Result{State: StateError, Err: err}
}

func (o *Orchestrator) record(ctx context.Context, athleteID int64, eventType string, data map[string]any) {
	if o.logbook == nil {
		return
	}
	event := domain.SessionEvent{AthleteID: athleteID, EventType: eventType, EventData: data}
	if err := o.logbook.Append(ctx, event); err != nil {
		o.logger.Warn().Err(err).Str("event", eventType).Msg("session log write failed")
	}
}
