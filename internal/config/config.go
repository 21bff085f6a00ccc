// Package config centralises configuration parsing for the dashboard service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Config captures runtime configuration values. It is constructed once at
// startup and passed explicitly to every component that needs it.
type Config struct {
	HTTPAddress        string
	StravaClientID     string
	StravaClientSecret string
	StravaRedirectURL  string
	SupabaseURL        string
	SupabaseKey        string
	SessionSecret      string
}

var required = []string{
	"STRAVA_CLIENT_ID",
	"STRAVA_CLIENT_SECRET",
	"SUPABASE_URL",
	"SUPABASE_KEY",
}

// Load reads environment variables into Config. All Strava and Supabase
// credentials are required; a missing one fails immediately with an error
// naming every absent variable rather than surfacing later as a runtime
// failure.
func Load() (Config, error) {
	var missing []string
	for _, key := range required {
		if v, ok := os.LookupEnv(key); !ok || v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	cfg := Config{
		HTTPAddress:        getEnv("HTTP_ADDRESS", ":8080"),
		StravaClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		StravaClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
		StravaRedirectURL:  getEnv("STRAVA_REDIRECT_URL", "http://localhost:8080/oauth/callback"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseKey:        os.Getenv("SUPABASE_KEY"),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
	}
	return cfg, nil
}

// DatabaseURL returns the Postgres connection URL for the hosted database.
// SUPABASE_URL may omit the password, in which case SUPABASE_KEY is injected
// as the connection credential.
func (c Config) DatabaseURL() (string, error) {
	parsed, err := url.Parse(c.SupabaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid SUPABASE_URL: %w", err)
	}
	if parsed.User == nil {
		parsed.User = url.UserPassword("postgres", c.SupabaseKey)
	} else if _, ok := parsed.User.Password(); !ok {
		parsed.User = url.UserPassword(parsed.User.Username(), c.SupabaseKey)
	}
	return parsed.String(), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
