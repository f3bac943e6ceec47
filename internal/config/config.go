// internal/config/config.go
//
// Process configuration, read once at startup from the environment.
// A .env file in the working directory is loaded first when present.
//
// Environment variables (defaults in brackets):
//   PORT [5175]                 HTTP listen port
//   DATABASE_PATH [./data/spotbot.db]
//   JWT_SECRET [dev_secret_change_me]
//   JWT_EXPIRES_DAYS [14]
//   COOKIE_NAME [spotbot_token]
//   CLIENT_ORIGIN [http://localhost:5173]
//   NODE_ENV                    "production" enables Secure cookies
//   LOG_LEVEL [info]
//   MAX_POINTS [25]             display ceiling and penalty base
//   POINTS_FLOOR [5]            certainty floor of the decay timer
//   ROUND_TICK [1s]             decay cadence
//   SCORING_MODE [bucketed]     bucketed | signed
//   SNIPPETS_FILE               corpus JSON; embedded starter set when empty
//   SNIPPET_SALT [local_dev_salt]
//   IDENTITY_DIR [./data/identity]

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/robalobadob/spotthebot/internal/round"
)

// Config holds every setting the server needs.
type Config struct {
	Port           string
	DatabasePath   string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	ClientOrigin   string
	Production     bool
	LogLevel       string
	SnippetsFile   string
	SnippetSalt    string
	IdentityDir    string
	Round          round.Config
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment without touching .env files.
func FromEnv() (*Config, error) {
	mode, err := round.ParseScoringMode(os.Getenv("SCORING_MODE"))
	if err != nil {
		return nil, err
	}
	tick, err := getEnvDuration("ROUND_TICK", time.Second)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Port:           getEnv("PORT", "5175"),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/spotbot.db"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: getEnvInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "spotbot_token"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:     os.Getenv("NODE_ENV") == "production",
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SnippetsFile:   os.Getenv("SNIPPETS_FILE"),
		SnippetSalt:    getEnv("SNIPPET_SALT", "local_dev_salt"),
		IdentityDir:    getEnv("IDENTITY_DIR", "./data/identity"),
		Round: round.Config{
			MaxPoints: getEnvInt("MAX_POINTS", 25),
			Floor:     getEnvInt("POINTS_FLOOR", round.DefaultFloor),
			Tick:      tick,
			Mode:      mode,
		},
	}
	if cfg.Round.MaxPoints <= 0 {
		return nil, fmt.Errorf("MAX_POINTS must be positive, got %d", cfg.Round.MaxPoints)
	}
	return cfg, nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses k as an int, falling back to def when unset or malformed.
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
