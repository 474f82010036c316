package commands

import (
	"errors"
	"log/slog"
	"os"
	"time"
	"wayfinder-backend/internal/geostore"
	"wayfinder-backend/internal/scrapers/branches"
	"wayfinder-backend/internal/telemetry"
	"wayfinder-backend/lib/configutil"
)

const configName = "branchscrape.json5"

type FetchConfig struct {
	TimeoutSeconds        float64 `json:"timeout_seconds"`
	ConnectTimeoutSeconds float64 `json:"connect_timeout_seconds"`
	Insecure              bool    `json:"insecure"`
	UserAgent             string  `json:"user_agent"`
	Retries               int     `json:"retries"`
	RequestsPerSecond     float64 `json:"requests_per_second"`
	CloudflareBypass      bool    `json:"cloudflare_bypass"`
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c FetchConfig) Options() branches.FetchOptions {
	return branches.FetchOptions{
		Timeout:           seconds(c.TimeoutSeconds),
		ConnectTimeout:    seconds(c.ConnectTimeoutSeconds),
		VerifyTLS:         !c.Insecure,
		UserAgent:         c.UserAgent,
		Retries:           c.Retries,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
	}
}

type MatchConfig struct {
	Fuzzy         bool    `json:"fuzzy"`
	MinSimilarity float64 `json:"min_similarity"`
}

func (c MatchConfig) Options() geostore.MatchOptions {
	return geostore.MatchOptions{
		Fuzzy:         c.Fuzzy,
		MinSimilarity: c.MinSimilarity,
	}
}

type Config struct {
	Fetch     FetchConfig         `json:"fetch"`
	Workers   int                 `json:"workers"`
	Database  configutil.Database `json:"database"`
	Match     MatchConfig         `json:"match"`
	Telemetry telemetry.Config    `json:"telemetry"`
}

// loadConfig reads the nearest branchscrape.json5, running without one is fine.
func loadConfig() (Config, error) {
	config, path, err := configutil.ReadRecursively[Config](configName)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file found, using defaults", "name", configName)
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	slog.Debug("read config", "path", path)
	return config, nil
}
