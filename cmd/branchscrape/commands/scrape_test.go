package commands

import (
	"testing"
	"time"
	"wayfinder-backend/internal/scrapers/branches"

	"github.com/stretchr/testify/require"
)

func TestDefaultSource(t *testing.T) {
	require.Equal(t, "shop.example.com", defaultSource("https://shop.example.com/branches?x=1"))
	require.Equal(t, "not a url", defaultSource("not a url"))
}

func TestApplyScrapeFlags(t *testing.T) {
	cfg := Config{
		Fetch: FetchConfig{
			TimeoutSeconds: 45,
			UserAgent:      "from-config",
			Retries:        2,
		},
	}

	err := scrapeCmd.Flags().Parse([]string{"--insecure", "--workers", "8", "--connect-timeout", "2.5"})
	require.NoError(t, err)

	cfg = applyScrapeFlags(scrapeCmd, cfg)
	require.Equal(t, FetchConfig{
		TimeoutSeconds:        45,
		ConnectTimeoutSeconds: 2.5,
		Insecure:              true,
		UserAgent:             "from-config",
		Retries:               2,
	}, cfg.Fetch)
	require.Equal(t, 8, cfg.Workers)

	require.Equal(t, branches.FetchOptions{
		Timeout:        45 * time.Second,
		ConnectTimeout: 2500 * time.Millisecond,
		VerifyTLS:      false,
		UserAgent:      "from-config",
		Retries:        2,
	}, cfg.Fetch.Options())
}
