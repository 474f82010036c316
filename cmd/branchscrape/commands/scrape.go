package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"
	"wayfinder-backend/cmd/branchscrape/utils"
	"wayfinder-backend/internal/geostore"
	"wayfinder-backend/internal/scrapers/branches"
	"wayfinder-backend/lib/restyutil"
	"wayfinder-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	scrapeTimeout        *float64
	scrapeConnectTimeout *float64
	scrapeInsecure       *bool
	scrapeUserAgent      *string
	scrapeLimit          *int
	scrapeWorkers        *int
	scrapeRetries        *int
	scrapeRps            *float64
	scrapeOut            *string
	scrapeSource         *string
	scrapeUpdateStores   *bool
	scrapeFuzzy          *bool
	scrapeDumpDir        *string
)

func init() {
	flags := scrapeCmd.Flags()
	scrapeTimeout = flags.Float64("timeout", branches.DefaultTimeout.Seconds(), "Seconds a single request may take.")
	scrapeConnectTimeout = flags.Float64("connect-timeout", branches.DefaultConnectTimeout.Seconds(), "Seconds connecting to a server may take, capped at --timeout.")
	scrapeInsecure = flags.Bool("insecure", false, "Skip TLS certificate verification.")
	scrapeUserAgent = flags.String("user-agent", "", "The user agent to send, a desktop browser's by default.")
	scrapeLimit = flags.Int("limit", 0, "Process at most this many branches, 0 processes all of them.")
	scrapeWorkers = flags.Int("workers", branches.DefaultWorkers, "Branches processed concurrently.")
	scrapeRetries = flags.Int("retries", 0, "Extra attempts after a failed request.")
	scrapeRps = flags.Float64("rps", 0, "Maximum requests per second, 0 is unlimited.")
	scrapeOut = flags.String("out", "", "Write the results as json to this file.")
	scrapeSource = flags.String("source", "", "The source name rows are saved under, the list page's host by default.")
	scrapeUpdateStores = flags.Bool("update-stores", false, "Copy coordinates onto stores with a matching name.")
	scrapeFuzzy = flags.Bool("fuzzy", false, "Match store names by similarity when no exact match exists.")
	scrapeDumpDir = flags.String("dump-dir", "", "Write every http request and response to files in this directory.")
	rootCmd.AddCommand(scrapeCmd)
}

// applyScrapeFlags overrides config values with the flags that were set explicitly.
func applyScrapeFlags(cmd *cobra.Command, cfg Config) Config {
	flags := cmd.Flags()
	if flags.Changed("timeout") || cfg.Fetch.TimeoutSeconds == 0 {
		cfg.Fetch.TimeoutSeconds = *scrapeTimeout
	}
	if flags.Changed("connect-timeout") || cfg.Fetch.ConnectTimeoutSeconds == 0 {
		cfg.Fetch.ConnectTimeoutSeconds = *scrapeConnectTimeout
	}
	if flags.Changed("insecure") {
		cfg.Fetch.Insecure = *scrapeInsecure
	}
	if flags.Changed("user-agent") {
		cfg.Fetch.UserAgent = *scrapeUserAgent
	}
	if flags.Changed("workers") || cfg.Workers == 0 {
		cfg.Workers = *scrapeWorkers
	}
	if flags.Changed("retries") {
		cfg.Fetch.Retries = *scrapeRetries
	}
	if flags.Changed("rps") {
		cfg.Fetch.RequestsPerSecond = *scrapeRps
	}
	if flags.Changed("fuzzy") {
		cfg.Match.Fuzzy = *scrapeFuzzy
	}
	return cfg
}

func defaultSource(sourceUrl string) string {
	parsed, err := url.Parse(sourceUrl)
	if err != nil || parsed.Hostname() == "" {
		return sourceUrl
	}
	return parsed.Hostname()
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <source-url>",
	Short: "Scrapes the branches linked from a list page and prints their coordinates.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sourceUrl := args[0]
		cfg := applyScrapeFlags(cmd, config)

		fetchOptions := cfg.Fetch.Options()
		if *scrapeDumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(*scrapeDumpDir)
			if err != nil {
				serviceutil.Fatal("failed to create dump directory", err)
			}
			fetchOptions.Dump = output
		}

		fetcher := branches.NewFetcher(fetchOptions, tel)
		scraper := branches.NewScraper(fetcher, tel)

		t1 := time.Now()
		results, err := scraper.Scrape(cmd.Context(), branches.ScrapeRequest{
			SourceUrl: sourceUrl,
			Limit:     *scrapeLimit,
			Workers:   cfg.Workers,
		})
		if errors.Is(err, context.Canceled) {
			slog.Warn("scrape interrupted, keeping finished branches", "branches", len(results))
		} else if err != nil {
			serviceutil.Fatal("failed to scrape", err)
		}
		slog.Info("scraping time", "seconds", time.Since(t1).Seconds())

		printBranches(results)

		if *scrapeOut != "" {
			err = writeJSONFile(*scrapeOut, results)
			if err != nil {
				serviceutil.Fatal("failed to write results", err)
			}
			slog.Info("wrote results", "path", *scrapeOut)
		}

		if !cfg.Database.Enabled() {
			if *scrapeUpdateStores {
				serviceutil.Fatal("cannot update stores", fmt.Errorf("no database configured"))
			}
			return
		}

		// saving should still happen after an interrupt
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), time.Second*30)
		defer cancel()

		store, closeStore := openStore(ctx)
		defer closeStore()

		source := *scrapeSource
		if source == "" {
			source = defaultSource(sourceUrl)
		}
		saved, err := store.SaveBranches(ctx, source, results)
		if err != nil {
			serviceutil.Fatal("failed to save branches", err)
		}
		slog.Info("saved branch locations", "source", source, "rows", saved)

		if *scrapeUpdateStores {
			matches, err := store.UpdateStoreCoordinates(ctx, results, cfg.Match.Options())
			if err != nil {
				serviceutil.Fatal("failed to update stores", err)
			}
			printMatches(matches)
		}
	},
}

func writeJSONFile(path string, results []branches.ScrapedBranch) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = geostore.WriteJSON(f, results)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printBranches(results []branches.ScrapedBranch) {
	t := utils.NewTable()
	t.AppendHeader(table.Row{"#", "Name", "Latitude", "Longitude", "Page", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60},
		{Number: 6, WidthMax: 40},
	})

	located := 0
	for i, b := range results {
		lat, ok := b.Latitude()
		lng, _ := b.Longitude()
		if ok {
			located++
		}
		t.AppendRow(table.Row{
			i + 1,
			b.Name,
			utils.FormatCoordinate(lat, ok),
			utils.FormatCoordinate(lng, ok),
			b.PageUrl,
			b.Err,
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d located", located, len(results))})
	t.Render()
}

func printMatches(matches []geostore.StoreMatch) {
	t := utils.NewTable()
	t.AppendHeader(table.Row{"Store", "Branch", "Similarity", "Latitude", "Longitude"})
	for _, m := range matches {
		t.AppendRow(table.Row{
			m.Store,
			m.Branch,
			fmt.Sprintf("%.3f", m.Similarity),
			utils.FormatCoordinate(m.Coordinates.Lat, true),
			utils.FormatCoordinate(m.Coordinates.Lng, true),
		})
	}
	t.Render()
}
