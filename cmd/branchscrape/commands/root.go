package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
	"wayfinder-backend/internal/geostore"
	"wayfinder-backend/internal/telemetry"
	"wayfinder-backend/lib/configutil"
	"wayfinder-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	verbose *bool
	dbFile  *string

	config    Config
	tel       telemetry.API = telemetry.SlogAPI{}
	providers telemetry.Telemetry
)

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print debug logs.")
	dbFile = rootCmd.PersistentFlags().String("db", "", "The sqlite database to save branch locations and stores to, overrides the config.")
}

var rootCmd = &cobra.Command{
	Use:   "branchscrape",
	Short: "branchscrape is a CLI for scraping the coordinates of a retailer's branches off its link hub page.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		var err error
		config, err = loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if *dbFile != "" {
			config.Database = configutil.Database{File: *dbFile}
		}

		providers, err = telemetry.Setup(cmd.Context(), "branchscrape", config.Telemetry)
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		if config.Telemetry.Otlp.Metrics.Enabled() {
			telemetry.InstrumentPerfStats(cmd.Context())
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		err := providers.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
}

// openStore opens the configured database and makes sure it carries the schema.
func openStore(ctx context.Context) (geostore.Store, func()) {
	if !config.Database.Enabled() {
		serviceutil.Fatal(
			"no database configured",
			fmt.Errorf("pass --db or set database.file in %s", configName),
		)
	}
	database, err := config.Database.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	err = geostore.Migrate(ctx, database)
	if err != nil {
		database.Close()
		serviceutil.Fatal("failed to migrate database", err)
	}
	return geostore.NewStore(database, tel), func() {
		database.Close()
	}
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
