package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-research/internal/sink"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create lookup log tables for the configured sinks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := sink.New(ctx, cfg.Sink)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		if err := sink.Migrate(ctx, s); err != nil {
			return eris.Wrap(err, "migrate")
		}
		zap.L().Info("migration complete", zap.String("sink", s.Name()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
