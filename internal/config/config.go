package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything main wires together. Judge endpoint and
// credentials are injected here rather than living as constants next
// to the judge client.
type Config struct {
	Port        int
	DatabaseURL string

	JudgeURL       string
	JudgeAuthToken string

	JudgePollInterval time.Duration
	JudgePollAttempts int

	DuelDurationMs int64

	AuthSecret string
}

func Load() *Config {
	cfg := &Config{
		Port:              getInt("PORT", 8080),
		DatabaseURL:       getString("DATABASE_URL", ""),
		JudgeURL:          getString("JUDGE_URL", "http://localhost:2358"),
		JudgeAuthToken:    getString("JUDGE_AUTH_TOKEN", ""),
		JudgePollInterval: time.Duration(getInt("JUDGE_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		JudgePollAttempts: getInt("JUDGE_POLL_ATTEMPTS", 10),
		DuelDurationMs:    int64(getInt("DUEL_DURATION_MS", 15*60*1000)),
		AuthSecret:        getString("AUTH_SECRET", ""),
	}
	return cfg
}

func getString(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
