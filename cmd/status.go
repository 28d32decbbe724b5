package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/georef-cli/internal/gis"
)

var (
	statusTop  int
	statusRuns int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show reference table counts and recent ingest runs",
	Long:  "Reports pending schema migrations, row counts for gis.countries and gis.states, the countries with the most linked states, and the most recent ingest runs. Read-only.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		pending, err := gis.Pending(ctx, pool)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		if len(pending) > 0 {
			formatPending(os.Stdout, pending)
			return nil
		}

		report, err := gis.Verify(ctx, pool, statusTop)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		entries, err := gis.NewRunLog(pool).ListRecent(ctx, statusRuns)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		formatReport(os.Stdout, report)
		_, _ = fmt.Fprintln(os.Stdout)
		formatRuns(os.Stdout, entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusTop, "top", 10, "countries to list by linked state count (0 to skip)")
	statusCmd.Flags().IntVar(&statusRuns, "runs", 10, "recent ingest runs to list")
	rootCmd.AddCommand(statusCmd)
}

// formatPending tells the operator the schema is behind.
func formatPending(out io.Writer, names []string) {
	_, _ = fmt.Fprintf(out, "schema: %d pending migration(s), run 'georef-cli migrate' first\n", len(names))
	for _, n := range names {
		_, _ = fmt.Fprintf(out, "  %s\n", n)
	}
}

// formatReport writes table counts and the per-country state listing to out.
func formatReport(out io.Writer, r *gis.Report) {
	_, _ = fmt.Fprintf(out, "countries: %s (%s without geometry)\n",
		humanize.Comma(r.Countries), humanize.Comma(r.CountriesNoGeom))
	_, _ = fmt.Fprintf(out, "states:    %s (%s linked, %s without country, %s without geometry)\n",
		humanize.Comma(r.States), humanize.Comma(r.LinkedStates),
		humanize.Comma(r.UnlinkedStates()), humanize.Comma(r.StatesNoGeom))

	if len(r.StatesPerCountry) == 0 {
		return
	}

	_, _ = fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNTRY\tISO\tSTATES")
	_, _ = fmt.Fprintln(w, "-------\t---\t------")
	for _, c := range r.StatesPerCountry {
		iso := c.ISOA2
		if iso == "" {
			iso = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, iso, humanize.Comma(c.States))
	}
	_ = w.Flush()
}

// formatRuns writes a tabular representation of ingest runs to out.
func formatRuns(out io.Writer, entries []gis.RunEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSOURCE\tSTATUS\tSTARTED\tDURATION\tATTEMPTED\tINSERTED\tDUPLICATES\tFAILED\tERROR")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t------\t-------\t--------\t---------\t--------\t----------\t------\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			e.ID,
			e.Kind,
			truncate(e.Source, 40),
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.Attempted,
			e.Inserted,
			e.Duplicates,
			e.Failed,
			truncate(e.Error, 60),
		)
	}
	_ = w.Flush()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
