package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/georef-cli/internal/gis"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply gis schema migrations",
	Long:  "Creates the PostGIS extension, the gis schema, the countries/states reference tables and the ingest log. Safe to run repeatedly.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := gis.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "migrate")
		}

		zap.L().Info("all gis migrations applied successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
