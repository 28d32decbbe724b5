package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/georef-cli/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample countries and states",
	Long:  "Inserts a small fixed set of sample countries and states for development and testing. Rows already present are skipped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		res, err := seed.Load(ctx, pool)
		if err != nil {
			return eris.Wrap(err, "seed")
		}

		formatSeedResult(os.Stdout, res, cfg.Ingest.MaxFailures)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// formatSeedResult reports both sample loads the way ingest reports a dataset,
// failures included.
func formatSeedResult(out io.Writer, res *seed.Result, maxFailures int) {
	formatSummary(out, "sample countries", res.Countries, maxFailures)
	formatSummary(out, "sample states", res.States, maxFailures)
}
