package commands

import (
	"wayfinder-backend/cmd/branchscrape/utils"
	"wayfinder-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	storesCmd.AddCommand(storesAddCmd)
	storesCmd.AddCommand(storesListCmd)
	rootCmd.AddCommand(storesCmd)
}

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manages the stores that receive scraped coordinates.",
}

var storesAddCmd = &cobra.Command{
	Use:   "add <name>...",
	Short: "Adds stores by name.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, closeStore := openStore(cmd.Context())
		defer closeStore()

		for _, name := range args {
			err := store.AddStore(cmd.Context(), name)
			if err != nil {
				serviceutil.Fatal("failed to add store", err)
			}
		}
	},
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints every store and its coordinates.",
	Run: func(cmd *cobra.Command, args []string) {
		store, closeStore := openStore(cmd.Context())
		defer closeStore()

		stores, err := store.ListStores(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list stores", err)
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Id", "Name", "Latitude", "Longitude"})
		for _, s := range stores {
			var lat, lng float64
			ok := s.Coordinates != nil
			if ok {
				lat, lng = s.Coordinates.Lat, s.Coordinates.Lng
			}
			t.AppendRow(table.Row{
				s.ID,
				s.Name,
				utils.FormatCoordinate(lat, ok),
				utils.FormatCoordinate(lng, ok),
			})
		}
		t.Render()
	},
}
