// cmd/dashboard/config.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type config struct {
	APIBaseURL    string
	APITimeoutMS  int
	PageLimit     int
	SyncMode      string
	JobPollMS     int
	HealthPollMS  int
	IdleCheckMS   int
	IdleThreshMS  int
	NATSURL       string
	UpdateSubject string
	AuthTokenURL  string
	AuthAPIKey    string
	AccessToken   string
	RefreshToken  string
	StatePath     string
}

func (c config) apiTimeout() time.Duration { return time.Duration(c.APITimeoutMS) * time.Millisecond }

func (c config) jobPoll() time.Duration { return time.Duration(c.JobPollMS) * time.Millisecond }

func (c config) healthPoll() time.Duration { return time.Duration(c.HealthPollMS) * time.Millisecond }

func (c config) idleCheck() time.Duration { return time.Duration(c.IdleCheckMS) * time.Millisecond }

func (c config) idleThreshold() time.Duration {
	return time.Duration(c.IdleThreshMS) * time.Millisecond
}

func loadConfig() (config, error) {
	cfg := config{
		APIBaseURL:    getenv("API_BASE_URL", ""),
		SyncMode:      getenv("SYNC_MODE", "poll"),
		NATSURL:       getenv("NATS_URL", "nats://127.0.0.1:4222"),
		UpdateSubject: getenv("JOB_UPDATE_SUBJECT", "jobs.updates"),
		AuthTokenURL:  getenv("AUTH_TOKEN_URL", ""),
		AuthAPIKey:    getenv("AUTH_API_KEY", ""),
		AccessToken:   getenv("ACCESS_TOKEN", ""),
		RefreshToken:  getenv("REFRESH_TOKEN", ""),
		StatePath:     getenv("STATE_PATH", ""),
	}

	if cfg.APIBaseURL == "" {
		return config{}, fmt.Errorf("API_BASE_URL is required")
	}
	if cfg.SyncMode != "poll" && cfg.SyncMode != "push" {
		return config{}, fmt.Errorf("SYNC_MODE must be poll or push (got %q)", cfg.SyncMode)
	}

	ints := []struct {
		dst  *int
		env  string
		dflt string
	}{
		{&cfg.APITimeoutMS, "API_TIMEOUT_MS", "15000"},
		{&cfg.PageLimit, "PAGE_LIMIT", "10"},
		{&cfg.JobPollMS, "JOB_POLL_MS", "3000"},
		{&cfg.HealthPollMS, "HEALTH_POLL_MS", "2000"},
		{&cfg.IdleCheckMS, "IDLE_CHECK_MS", "60000"},
		{&cfg.IdleThreshMS, "IDLE_THRESHOLD_MS", "900000"},
	}
	for _, it := range ints {
		v, err := parsePositiveInt(getenv(it.env, it.dflt), it.env)
		if err != nil {
			return config{}, err
		}
		*it.dst = v
	}

	return cfg, nil
}

func getenv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}
