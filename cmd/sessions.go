package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"shollu-partner/internal/config"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage persisted dashboard sessions",
	Long:  `Inspect and prune sessions kept by the sql session store.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCmd.PersistentPreRun(cmd, args)
		if cfg.SessionStore != config.SessionStoreSQL {
			fail("session_store is %q; only the sql store persists sessions", cfg.SessionStore)
		}
		initCLILogger()
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Run: func(cmd *cobra.Command, args []string) {
		provider := openProvider()
		defer provider.Close()

		list, err := provider.ListSessions(context.Background())
		if err != nil {
			fail("Failed to list sessions: %v", err)
		}
		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tUSER\tROLE\tEXPIRES\tSTATE")
		fmt.Fprintln(w, "--\t----\t----\t-------\t-----")
		for _, s := range list {
			state := "active"
			if !now.Before(s.ExpiresAt) {
				state = "expired"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Username, s.Role, s.ExpiresAt.Format(time.RFC3339), state)
		}
		w.Flush()
		fmt.Printf("\nTotal sessions: %d\n", len(list))
	},
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired sessions",
	Run: func(cmd *cobra.Command, args []string) {
		provider := openProvider()
		defer provider.Close()

		ids, err := provider.ExpireSessions(context.Background(), time.Now())
		if err != nil {
			fail("Failed to prune sessions: %v", err)
		}
		fmt.Printf("Removed %d expired sessions\n", len(ids))
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsPruneCmd)
	rootCmd.AddCommand(sessionsCmd)
}
