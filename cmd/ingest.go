package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/georef-cli/internal/db"
	"github.com/sells-group/georef-cli/internal/gis"
	"github.com/sells-group/georef-cli/internal/ingest"
	"github.com/sells-group/georef-cli/internal/source"
)

var ingestDryRun bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a Natural Earth dataset",
	Long: `Loads a Natural Earth FeatureCollection (.geojson) or shapefile (.shp) into
gis.countries or gis.states. Features already present are skipped, so a dataset can be
loaded repeatedly. Load countries before states so states can be linked to them.`,
}

var ingestCountriesCmd = &cobra.Command{
	Use:   "countries [file]",
	Short: "Load admin-0 countries",
	Long:  "Loads admin-0 countries. Without a file argument, ingest.countries_file in ingest.dataset_dir is used; '-' reads stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()

		return runIngest(ctx, os.Stdout, ingest.KindCountry, datasetPath(cfg.Ingest.CountriesFile, args))
	},
}

var ingestStatesCmd = &cobra.Command{
	Use:     "states [file]",
	Aliases: []string{"provinces"},
	Short:   "Load admin-1 states and provinces",
	Long:    "Loads admin-1 states/provinces. Without a file argument, ingest.states_file in ingest.dataset_dir is used; '-' reads stdin.",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptible(cmd.Context())
		defer stop()

		return runIngest(ctx, os.Stdout, ingest.KindState, datasetPath(cfg.Ingest.StatesFile, args))
	},
}

func init() {
	ingestCmd.PersistentFlags().BoolVar(&ingestDryRun, "dry-run", false, "parse the dataset and report its feature count without connecting to the database")
	ingestCmd.AddCommand(ingestCountriesCmd, ingestStatesCmd)
	rootCmd.AddCommand(ingestCmd)
}

// datasetPath returns the path argument if given, otherwise the configured
// default file inside ingest.dataset_dir.
func datasetPath(defaultFile string, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return filepath.Join(cfg.Ingest.DatasetDir, defaultFile)
}

func runIngest(ctx context.Context, out io.Writer, kind ingest.Kind, path string) error {
	// Parse before connecting: an unreadable dataset must not touch the database.
	fc, err := source.Load(path)
	if err != nil {
		return eris.Wrapf(err, "ingest %s", kind)
	}

	if ingestDryRun {
		_, _ = fmt.Fprintf(out, "%s: %s features parsed (dry run, nothing written)\n",
			path, humanize.Comma(int64(len(fc.Features))))
		return nil
	}

	pool, err := dbPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	summary, err := ingestCollection(ctx, pool, kind, path, fc)
	if summary != nil {
		formatSummary(out, path, summary, cfg.Ingest.MaxFailures)
	}
	return err
}

// ingestCollection runs one ingestion and records it in gis.ingest_log.
func ingestCollection(ctx context.Context, pool db.Pool, kind ingest.Kind, path string, fc *source.Collection) (*ingest.Summary, error) {
	runs := gis.NewRunLog(pool)
	runID := uuid.New()

	logID, err := runs.Start(ctx, runID, string(kind), path)
	if err != nil {
		return nil, err
	}

	summary, runErr := ingest.RunCollection(ctx, pool, kind, fc, ingest.Options{RunID: runID})
	counts := countsOf(summary)

	// The run context may be cancelled; the log row must still be closed.
	logCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		if err := runs.Fail(logCtx, logID, counts, runErr.Error()); err != nil {
			zap.L().Warn("ingest: could not record failed run", zap.Int64("log_id", logID), zap.Error(err))
		}
		return summary, runErr
	}
	if err := runs.Complete(logCtx, logID, counts); err != nil {
		return summary, err
	}
	return summary, nil
}

func countsOf(s *ingest.Summary) gis.Counts {
	if s == nil {
		return gis.Counts{}
	}
	return gis.Counts{
		Attempted:  s.Attempted,
		Inserted:   s.Inserted,
		Duplicates: s.Duplicates,
		Failed:     s.Failed,
		Unlinked:   s.Unlinked,
	}
}

// formatSummary writes a run summary and up to maxFailures failed features.
func formatSummary(out io.Writer, path string, s *ingest.Summary, maxFailures int) {
	_, _ = fmt.Fprintf(out, "%s (%s): %s attempted, %s inserted, %s duplicates, %s failed",
		path, s.Kind,
		humanize.Comma(int64(s.Attempted)),
		humanize.Comma(int64(s.Inserted)),
		humanize.Comma(int64(s.Duplicates)),
		humanize.Comma(int64(s.Failed)),
	)
	if s.Kind == ingest.KindState {
		_, _ = fmt.Fprintf(out, ", %s without country", humanize.Comma(int64(s.Unlinked)))
	}
	_, _ = fmt.Fprintln(out)

	if len(s.Failures) == 0 || maxFailures <= 0 {
		return
	}
	shown := s.Failures
	if len(shown) > maxFailures {
		shown = shown[:maxFailures]
	}
	_, _ = fmt.Fprintf(out, "failures (%d of %d):\n", len(shown), len(s.Failures))
	for _, f := range shown {
		_, _ = fmt.Fprintf(out, "  #%d %s: %s\n", f.Index, f.Name, truncate(f.Reason, 120))
	}
}
