package commands

import (
	"time"
	"wayfinder-backend/cmd/branchscrape/utils"
	"wayfinder-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var locationsSource *string

func init() {
	locationsSource = locationsCmd.Flags().String("source", "", "Only print the locations of this source.")
	rootCmd.AddCommand(locationsCmd)
}

var locationsCmd = &cobra.Command{
	Use:   "locations [--source <name>]",
	Short: "Prints the branch locations saved by previous scrapes.",
	Run: func(cmd *cobra.Command, args []string) {
		store, closeStore := openStore(cmd.Context())
		defer closeStore()

		sources := []string{*locationsSource}
		if *locationsSource == "" {
			var err error
			sources, err = store.Sources(cmd.Context())
			if err != nil {
				serviceutil.Fatal("failed to list sources", err)
			}
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Source", "Key", "Name", "Latitude", "Longitude", "Updated"})
		for _, source := range sources {
			locations, err := store.ListBranches(cmd.Context(), source)
			if err != nil {
				serviceutil.Fatal("failed to list locations", err)
			}
			for _, l := range locations {
				lat, ok := l.Branch.Latitude()
				lng, _ := l.Branch.Longitude()
				t.AppendRow(table.Row{
					source,
					l.SourceKey,
					l.Branch.Name,
					utils.FormatCoordinate(lat, ok),
					utils.FormatCoordinate(lng, ok),
					l.UpdatedAt.Format(time.DateTime),
				})
			}
		}
		t.Render()
	},
}
