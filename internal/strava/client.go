// Package strava talks to the Strava v3 API: the OAuth2 token endpoints and
// the paginated athlete activities listing.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"example.com/stride/internal/domain"
)

const (
	defaultBaseURL = "https://www.strava.com/api/v3"
	defaultPerPage = 200
)

// Endpoint is Strava's OAuth2 provider endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// NewOAuthConfig builds the oauth2 configuration for the authorization-code
// flow against Strava.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"activity:read_all"},
		Endpoint:     Endpoint,
	}
}

// Client fetches activities from the Strava API. Requests are paced with a
// rate limiter sized for Strava's 100-reads-per-15-minutes budget.
type Client struct {
	httpClient *http.Client
	baseURL    string
	perPage    int
	limiter    *rate.Limiter
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithPerPage overrides the page size.
func WithPerPage(n int) Option {
	return func(c *Client) { c.perPage = n }
}

// WithLimiter overrides the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient constructs a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		perPage:    defaultPerPage,
		limiter:    rate.NewLimiter(rate.Every(9*time.Second), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SummaryActivity is the wire shape of one item in Strava's activity listing.
type SummaryActivity struct {
	ID      int64 `json:"id"`
	Athlete struct {
		ID int64 `json:"id"`
	} `json:"athlete"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	SportType          string   `json:"sport_type"`
	StartDateLocal     string   `json:"start_date_local"`
	Distance           float64  `json:"distance"`
	MovingTime         float64  `json:"moving_time"`
	ElapsedTime        float64  `json:"elapsed_time"`
	TotalElevationGain float64  `json:"total_elevation_gain"`
	AverageSpeed       float64  `json:"average_speed"`
	MaxSpeed           float64  `json:"max_speed"`
	AverageHeartrate   *float64 `json:"average_heartrate"`
	MaxHeartrate       *float64 `json:"max_heartrate"`
	ElevHigh           *float64 `json:"elev_high"`
	ElevLow            *float64 `json:"elev_low"`
	WorkoutType        *int     `json:"workout_type"`
}

// FetchAll pages through the athlete's activities starting at page 1 and
// returns them normalized. Each call is a fresh traversal; the loop stops
// when a page comes back with fewer items than the page size. Any non-200
// response or malformed page aborts the whole fetch: callers get either the
// complete history or an error, never a partial slice.
func (c *Client) FetchAll(ctx context.Context, accessToken string) ([]domain.Activity, error) {
	var activities []domain.Activity

	for page := 1; ; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
		}

		batch, err := c.fetchPage(ctx, accessToken, page)
		if err != nil {
			return nil, err
		}

		for _, raw := range batch {
			normalized, err := Normalize(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: page %d: %v", domain.ErrFetch, page, err)
			}
			activities = append(activities, normalized)
		}

		if len(batch) < c.perPage {
			return activities, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, accessToken string, page int) ([]SummaryActivity, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(c.perPage))

	endpoint := fmt.Sprintf("%s/athlete/activities?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", domain.ErrFetch, page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: page %d: unexpected status %d", domain.ErrFetch, page, resp.StatusCode)
	}

	var batch []SummaryActivity
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", domain.ErrFetch, page, err)
	}
	return batch, nil
}
