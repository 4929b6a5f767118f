package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	app "shollu-partner/internal"
	"shollu-partner/internal/events"

	"github.com/spf13/cobra"
)

var remoteEvents bool

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the event catalog",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events and the scan flow each one uses",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := cliContext()
		defer cancel()
		initCLILogger()

		var src events.Source
		if remoteEvents {
			client, stop, err := app.NewBackend(cfg)
			if err != nil {
				fail("Failed to create backend client: %v", err)
			}
			defer stop()
			src = client
		}
		catalog, err := events.Load(ctx, cfg.Events, nil)
		if err != nil {
			fail("Failed to load event catalog: %v", err)
		}
		if src != nil {
			if err := catalog.Refresh(ctx, src); err != nil {
				fail("Failed to refresh event catalog: %v", err)
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tKIND\tFLOW")
		fmt.Fprintln(w, "--\t-----\t----\t----")
		for _, e := range catalog.All() {
			flow := "attendance"
			if e.Quran() {
				flow = "verse log"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.Label, e.Kind, flow)
		}
		w.Flush()
	},
}

func init() {
	eventsListCmd.Flags().BoolVar(&remoteEvents, "remote", false, "refresh the catalog from the backend")
	eventsCmd.AddCommand(eventsListCmd)
	rootCmd.AddCommand(eventsCmd)
}
