// Package token owns the OAuth token lifecycle: the initial code exchange and
// refresh-on-expiry against Strava, persisting every result before returning.
package token

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"example.com/stride/internal/domain"
	"example.com/stride/internal/observability"
)

// refreshMargin is subtracted from the stored expiry so a token about to
// lapse mid-sync is refreshed up front.
const refreshMargin = 5 * time.Minute

// Store persists one AthleteToken per athlete.
type Store interface {
	GetToken(ctx context.Context, athleteID int64) (*domain.AthleteToken, error)
	UpsertToken(ctx context.Context, token domain.AthleteToken) error
}

// Manager obtains, refreshes and persists token pairs.
type Manager struct {
	oauth *oauth2.Config
	store Store
	now   func() time.Time
}

// NewManager constructs a Manager.
func NewManager(oauth *oauth2.Config, store Store) *Manager {
	return &Manager{oauth: oauth, store: store, now: time.Now}
}

// Authorize exchanges a one-time authorization code for a token pair. The
// athlete id is carried in the token response payload. The token is persisted
// before it is returned.
func (m *Manager) Authorize(ctx context.Context, code string) (domain.AthleteToken, error) {
	exchanged, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.AthleteToken{}, fmt.Errorf("%w: code exchange rejected: %v", domain.ErrAuth, err)
	}

	athleteID, err := athleteIDFromToken(exchanged)
	if err != nil {
		return domain.AthleteToken{}, fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}

	token := domain.AthleteToken{
		AthleteID:    athleteID,
		AccessToken:  exchanged.AccessToken,
		RefreshToken: exchanged.RefreshToken,
		ExpiresAt:    exchanged.Expiry.UTC(),
	}
	if err := m.store.UpsertToken(ctx, token); err != nil {
		return domain.AthleteToken{}, err
	}
	return token, nil
}

// ValidToken returns a usable token for the athlete, refreshing it first when
// the stored one expires within the safety margin. A refresh is attempted at
// most once per call and never retried: a second blind attempt against the
// OAuth endpoint risks invalidating the rotated refresh token. The refreshed
// tuple is persisted whole before returning.
func (m *Manager) ValidToken(ctx context.Context, athleteID int64) (domain.AthleteToken, error) {
	stored, err := m.store.GetToken(ctx, athleteID)
	if err != nil {
		return domain.AthleteToken{}, err
	}
	if stored == nil {
		return domain.AthleteToken{}, domain.ErrNoToken
	}
	if !stored.Expired(m.now(), refreshMargin) {
		return *stored, nil
	}

	source := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: stored.RefreshToken})
	fresh, err := source.Token()
	if err != nil {
		return domain.AthleteToken{}, fmt.Errorf("%w: refresh rejected: %v", domain.ErrAuth, err)
	}
	observability.RecordTokenRefresh()

	token := domain.AthleteToken{
		AthleteID:    athleteID,
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
		ExpiresAt:    fresh.Expiry.UTC(),
	}
	if err := m.store.UpsertToken(ctx, token); err != nil {
		return domain.AthleteToken{}, err
	}
	return token, nil
}

func athleteIDFromToken(tok *oauth2.Token) (int64, error) {
	athlete, ok := tok.Extra("athlete").(map[string]any)
	if !ok {
		return 0, fmt.Errorf("token response missing athlete object")
	}
	id, ok := athlete["id"].(float64)
	if !ok {
		return 0, fmt.Errorf("token response missing athlete id")
	}
	return int64(id), nil
}
