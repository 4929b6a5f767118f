package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	app "shollu-partner/internal"
	"shollu-partner/internal/events"
	"shollu-partner/internal/shollu"
	"shollu-partner/internal/status"

	"github.com/spf13/cobra"
)

const cliTimeout = 60 * time.Second

var (
	username string
	password string
	pageNum  int
	pageSize int
)

// backendSession logs in with the --username/--password flags, falling back
// to SHOLLU_USERNAME and SHOLLU_PASSWORD.
func backendSession(ctx context.Context) (*shollu.Client, string, func()) {
	initCLILogger()
	user, pass := username, password
	if user == "" {
		user = os.Getenv("SHOLLU_USERNAME")
	}
	if pass == "" {
		pass = os.Getenv("SHOLLU_PASSWORD")
	}
	if user == "" || pass == "" {
		fail("Credentials required: use --username/--password or SHOLLU_USERNAME/SHOLLU_PASSWORD")
	}

	client, stop, err := app.NewBackend(cfg)
	if err != nil {
		fail("Failed to create backend client: %v", err)
	}
	res, err := client.Login(ctx, user, pass)
	if err != nil {
		stop()
		msg := shollu.MessageOf(err)
		if msg == "" {
			msg = err.Error()
		}
		fail("Login failed: %s", msg)
	}
	return client, res.Token, stop
}

func cliContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cliTimeout)
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		fail("Invalid id %q", s)
	}
	return id
}

func printPagination(p shollu.Pagination) {
	fmt.Printf("\nPage %d of %d, total %d\n", p.Page, max(p.TotalPages, 1), p.Total)
}

// loadCatalog reads the configured catalog without refreshing it remotely.
func loadCatalog(ctx context.Context) *events.Catalog {
	catalog, err := events.Load(ctx, cfg.Events, nil)
	if err != nil {
		fail("Failed to load event catalog: %v", err)
	}
	return catalog
}

var satgasCmd = &cobra.Command{
	Use:   "satgas",
	Short: "Review satgas applications",
}

var satgasPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List satgas applications",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := cliContext()
		defer cancel()
		client, token, stop := backendSession(ctx)
		defer stop()

		list, err := client.PendingSatgas(ctx, token, pageNum, pageSize)
		if err != nil {
			fail("Failed to list applications: %v", err)
		}
		catalog := loadCatalog(ctx)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tUSERNAME\tMOSQUE\tEVENTS\tSTATUS")
		fmt.Fprintln(w, "--\t----\t--------\t------\t------\t------")
		for _, a := range list.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Username, a.MosqueName,
				catalog.Labels(a.EventIDs), status.ParseSatgas(a.Status).Label())
		}
		w.Flush()
		fmt.Printf("\nPending %d, approved %d, rejected %d, total %d\n",
			list.Summary.Pending, list.Summary.Approved, list.Summary.Rejected, list.Summary.Total)
		printPagination(list.Pagination)
	},
}

var approveEvents []int

var satgasApproveCmd = &cobra.Command{
	Use:   "approve ID",
	Short: "Approve a satgas application",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := cliContext()
		defer cancel()
		client, token, stop := backendSession(ctx)
		defer stop()

		id := parseID(args[0])
		eventIDs := approveEvents
		if len(eventIDs) == 0 {
			eventIDs = applicationEvents(ctx, client, token, id)
		}
		if _, err := client.ApproveSatgas(ctx, token, id, eventIDs); err != nil {
			fail("Failed to approve %d: %v", id, err)
		}
		fmt.Printf("Approved satgas %d\n", id)
	},
}

// applicationEvents looks up the events chosen at registration.
func applicationEvents(ctx context.Context, client *shollu.Client, token string, id int64) []int {
	for page := 1; ; page++ {
		list, err := client.PendingSatgas(ctx, token, page, 100)
		if err != nil {
			fail("Failed to look up application %d: %v", id, err)
		}
		for _, a := range list.Items {
			if int64(a.ID) == id {
				return a.EventIDs
			}
		}
		if !list.Pagination.HasNext() || len(list.Items) == 0 {
			fail("Application %d not found", id)
		}
	}
}

var satgasRejectCmd = &cobra.Command{
	Use:   "reject ID",
	Short: "Reject a satgas application",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := cliContext()
		defer cancel()
		client, token, stop := backendSession(ctx)
		defer stop()

		id := parseID(args[0])
		if _, err := client.RejectSatgas(ctx, token, id); err != nil {
			fail("Failed to reject %d: %v", id, err)
		}
		fmt.Printf("Rejected satgas %d\n", id)
	},
}

func pipeline() *status.Pipeline {
	p, err := status.PipelineByName(cfg.Cards.Pipeline)
	if err != nil {
		fail("%v", err)
	}
	return p
}

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Manage card print requests",
}

var cardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List card requests",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := cliContext()
		defer cancel()
		client, token, stop := backendSession(ctx)
		defer stop()

		list, err := client.CardRequests(ctx, token, pageNum, pageSize)
		if err != nil {
			fail("Failed to list card requests: %v", err)
		}
		p := pipeline()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSATGAS\tMOSQUE\tQUANTITY\tSTATUS\tNEXT")
		fmt.Fprintln(w, "--\t------\t------\t--------\t------\t----")
		for _, r := range list.Items {
			label, next := r.Status, "-"
			if st, err := p.Parse(r.Status); err == nil {
				label = st.Label()
				if n, ok := st.Next(); ok {
					next = n.Code
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.SatgasName, r.MosqueName, r.Quantity, label, next)
		}
		w.Flush()
		printPagination(list.Pagination)
	},
}

var cardsAdvanceCmd = &cobra.Command{
	Use:   "advance ID CURRENT [TARGET]",
	Short: "Move a card request to its next status",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := cliContext()
		defer cancel()

		id := parseID(args[0])
		target := ""
		if len(args) == 3 {
			target = args[2]
		}
		next, err := pipeline().Advance(args[1], target)
		if err != nil {
			fail("%v", err)
		}

		client, token, stop := backendSession(ctx)
		defer stop()
		if _, err := client.UpdateCardRequestStatus(ctx, token, id, next.Code()); err != nil {
			fail("Failed to update %d: %v", id, err)
		}
		fmt.Printf("Card request %d is now %s\n", id, next.Label())
	},
}

var pdfOut string

var cardsPDFCmd = &cobra.Command{
	Use:   "pdf ID",
	Short: "Download the printable cards of a request",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := cliContext()
		defer cancel()
		client, token, stop := backendSession(ctx)
		defer stop()

		id := parseID(args[0])
		pdf, err := client.GenerateCardPDF(ctx, token, id)
		if err != nil {
			fail("Failed to generate PDF for %d: %v", id, err)
		}
		out := pdfOut
		if out == "" {
			out = fmt.Sprintf("kartu-%d.pdf", id)
		}
		if err := os.WriteFile(out, pdf, 0644); err != nil {
			fail("Failed to write %s: %v", out, err)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", out, len(pdf))
	},
}

func init() {
	for _, c := range []*cobra.Command{satgasCmd, cardsCmd} {
		c.PersistentFlags().StringVar(&username, "username", "", "partner username (or SHOLLU_USERNAME)")
		c.PersistentFlags().StringVar(&password, "password", "", "partner password (or SHOLLU_PASSWORD)")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{satgasPendingCmd, cardsListCmd} {
		c.Flags().IntVar(&pageNum, "page", 1, "page number")
		c.Flags().IntVar(&pageSize, "limit", 20, "rows per page")
	}
	satgasApproveCmd.Flags().IntSliceVar(&approveEvents, "event", nil, "event ids to approve (default: the ones chosen at registration)")
	cardsPDFCmd.Flags().StringVarP(&pdfOut, "output", "o", "", "output file (default kartu-ID.pdf)")

	satgasCmd.AddCommand(satgasPendingCmd, satgasApproveCmd, satgasRejectCmd)
	cardsCmd.AddCommand(cardsListCmd, cardsAdvanceCmd, cardsPDFCmd)
}
