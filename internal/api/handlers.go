// Package api exposes the HTTP surface of the dashboard: the Strava connect
// flow, the sync trigger, and the aggregate views.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"example.com/stride/internal/domain"
	"example.com/stride/internal/report"
	"example.com/stride/internal/syncer"
)

const (
	sessionName     = "stride_session"
	sessionAthlete  = "athlete_id"
	sessionOAuthKey = "oauth_state"
)

// Authorizer exchanges a one-time authorization code for a persisted token.
type Authorizer interface {
	Authorize(ctx context.Context, code string) (domain.AthleteToken, error)
}

// Syncer runs one sync pass for an athlete.
type Syncer interface {
	Run(ctx context.Context, athleteID int64) syncer.Result
}

// ActivityReader lists stored activities for an athlete.
type ActivityReader interface {
	ListByAthlete(ctx context.Context, athleteID int64) ([]domain.Activity, error)
}

// Handler coordinates HTTP requests with the sync flow and stores.
type Handler struct {
	oauth      *oauth2.Config
	authorizer Authorizer
	syncer     Syncer
	activities ActivityReader
	sessions   sessions.Store
	logger     zerolog.Logger
}

// NewHandler builds a Handler.
func NewHandler(oauth *oauth2.Config, authorizer Authorizer, s Syncer, activities ActivityReader, store sessions.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		oauth:      oauth,
		authorizer: authorizer,
		syncer:     s,
		activities: activities,
		sessions:   store,
		logger:     logger,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.home)
	mux.HandleFunc("/connect", h.connect)
	mux.HandleFunc("/oauth/callback", h.callback)
	mux.HandleFunc("/v1/sync", h.sync)
	mux.HandleFunc("/v1/activities", h.listActivities)
	mux.HandleFunc("/v1/summary", h.summary)
	mux.HandleFunc("/v1/charts/training-load", h.trainingLoadChart)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, ok := h.sessionAthlete(r); !ok {
		fmt.Fprint(w, `<html><body>
			<h1>Training dashboard</h1>
			<p><a href="/connect">Connect with Strava</a></p>
		</body></html>`)
		return
	}
	fmt.Fprint(w, `<html><body>
		<h1>Training dashboard</h1>
		<form action="/v1/sync" method="post"><button type="submit">Fetch activities</button></form>
		<p><a href="/v1/activities">Activities</a> ·
		<a href="/v1/summary">Summary</a> ·
		<a href="/v1/charts/training-load">Training load</a></p>
	</body></html>`)
}

// connect starts the authorization-code flow: a random state nonce is kept in
// the cookie session and sent to Strava's authorize endpoint.
func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	state := uuid.NewString()
	session.Values[sessionOAuthKey] = state
	if err := session.Save(r, w); err != nil {
		h.logger.Error().Err(err).Msg("session save failed")
		writeError(w, http.StatusInternalServerError, "server_error", "unable to start authorization")
		return
	}
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// callback exchanges the returned code and binds the athlete to the session.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	if denied := r.FormValue("error"); denied != "" {
		writeError(w, http.StatusUnauthorized, "auth_denied", "authorization was denied: "+denied)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	expected, _ := session.Values[sessionOAuthKey].(string)
	if expected == "" || r.FormValue("state") != expected {
		writeError(w, http.StatusUnauthorized, "invalid_state", "oauth state mismatch")
		return
	}
	delete(session.Values, sessionOAuthKey)

	token, err := h.authorizer.Authorize(r.Context(), r.FormValue("code"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("code exchange failed")
		writeError(w, statusForKind(domain.Kind(err)), domain.Kind(err), "connection failed, try again")
		return
	}

	session.Values[sessionAthlete] = token.AthleteID
	if err := session.Save(r, w); err != nil {
		h.logger.Error().Err(err).Msg("session save failed")
		writeError(w, http.StatusInternalServerError, "server_error", "unable to complete authorization")
		return
	}
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

// SyncResponse reports the terminal state of a sync pass.
type SyncResponse struct {
	State     string `json:"state"`
	Fetched   int    `json:"fetched"`
	Stored    int    `json:"stored"`
	ErrorKind string `json:"error_kind,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	athleteID, ok := h.sessionAthlete(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "connect your Strava account first")
		return
	}

	result := h.syncer.Run(r.Context(), athleteID)
	resp := SyncResponse{
		State:     string(result.State),
		Fetched:   result.Fetched,
		Stored:    result.Stored,
		ErrorKind: result.Kind(),
	}
	status := http.StatusOK
	if result.Err != nil {
		resp.Detail = userMessage(result.Kind())
		status = statusForKind(result.Kind())
	}
	writeJSON(w, status, resp)
}

// ActivityView is the JSON shape of one stored activity.
type ActivityView struct {
	ActivityID       int64     `json:"activity_id"`
	AthleteID        int64     `json:"athlete_id"`
	Name             string    `json:"name"`
	Sport            string    `json:"sport"`
	Type             string    `json:"type"`
	DatetimeLocal    time.Time `json:"datetime_local"`
	Distance         float64   `json:"distance"`
	MovingTime       float64   `json:"moving_time"`
	ElapsedTime      float64   `json:"elapsed_time"`
	ElevationGain    float64   `json:"elevation_gain"`
	AverageSpeed     float64   `json:"average_speed"`
	MaxSpeed         float64   `json:"max_speed"`
	AverageHeartrate *float64  `json:"average_heartrate,omitempty"`
	MaxHeartrate     *float64  `json:"max_heartrate,omitempty"`
	ElevHigh         *float64  `json:"elev_high,omitempty"`
	ElevLow          *float64  `json:"elev_low,omitempty"`
	WorkoutType      *string   `json:"workout_type,omitempty"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items []ActivityView `json:"items"`
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	athleteID, ok := h.sessionAthlete(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "connect your Strava account first")
		return
	}

	activities, err := h.activities.ListByAthlete(r.Context(), athleteID)
	if err != nil {
		h.logger.Error().Err(err).Msg("list activities failed")
		writeError(w, statusForKind(domain.Kind(err)), domain.Kind(err), "unable to load activities")
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		items = append(items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{Items: items})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	athleteID, ok := h.sessionAthlete(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "connect your Strava account first")
		return
	}

	activities, err := h.activities.ListByAthlete(r.Context(), athleteID)
	if err != nil {
		h.logger.Error().Err(err).Msg("list activities failed")
		writeError(w, statusForKind(domain.Kind(err)), domain.Kind(err), "unable to load activities")
		return
	}
	writeJSON(w, http.StatusOK, report.Summarize(activities))
}

func (h *Handler) trainingLoadChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	athleteID, ok := h.sessionAthlete(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "connect your Strava account first")
		return
	}

	activities, err := h.activities.ListByAthlete(r.Context(), athleteID)
	if err != nil {
		h.logger.Error().Err(err).Msg("list activities failed")
		writeError(w, statusForKind(domain.Kind(err)), domain.Kind(err), "unable to load activities")
		return
	}
	if len(activities) == 0 {
		writeError(w, http.StatusNotFound, "no_data", "no activities stored yet, run a sync first")
		return
	}

	metric := report.MetricDistance
	if r.URL.Query().Get("metric") == string(report.MetricTime) {
		metric = report.MetricTime
	}

	png, err := report.RenderTrainingLoad(report.WeeklyLoad(activities), metric)
	if err != nil {
		h.logger.Error().Err(err).Msg("chart render failed")
		writeError(w, http.StatusInternalServerError, "server_error", "unable to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) sessionAthlete(r *http.Request) (int64, bool) {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return 0, false
	}
	id, ok := session.Values[sessionAthlete].(int64)
	return id, ok && id != 0
}

func statusForKind(kind string) int {
	switch kind {
	case "auth":
		return http.StatusUnauthorized
	case "fetch":
		return http.StatusBadGateway
	case "storage":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(kind string) string {
	switch kind {
	case "auth":
		return "authorization expired or revoked, reconnect your Strava account"
	case "fetch":
		return "Strava could not be reached, try again"
	case "storage":
		return "database unavailable, try again"
	default:
		return "unexpected failure"
	}
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ActivityID:       a.ActivityID,
		AthleteID:        a.AthleteID,
		Name:             a.Name,
		Sport:            a.Sport,
		Type:             a.Type,
		DatetimeLocal:    a.DatetimeLocal,
		Distance:         a.Distance,
		MovingTime:       a.MovingTime,
		ElapsedTime:      a.ElapsedTime,
		ElevationGain:    a.ElevationGain,
		AverageSpeed:     a.AverageSpeed,
		MaxSpeed:         a.MaxSpeed,
		AverageHeartrate: a.AverageHeartrate,
		MaxHeartrate:     a.MaxHeartrate,
		ElevHigh:         a.ElevHigh,
		ElevLow:          a.ElevLow,
		WorkoutType:      a.WorkoutType,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
