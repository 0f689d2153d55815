package analyst

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	engine "github.com/huynd2174/Social-Network-Analyst--sub000"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/ingest"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Merge batch files into the graph and save a snapshot",
		Long: `Merge one or more JSON or YAML batch files into the graph. Invalid records
are reported and skipped. When graph.snapshot_dir is configured the merged
graph is saved so later commands start from it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			reports := make(map[string]ingest.Report, len(args))
			for _, path := range args {
				rep, err := a.engine.IngestFile(ctx, path)
				if err != nil {
					return fmt.Errorf("failed to ingest %s: %w", path, err)
				}
				reports[path] = rep
			}

			if _, err := a.engine.Persist(ctx); err != nil && !errors.Is(err, engine.ErrNoSnapshotStore) {
				return fmt.Errorf("failed to persist snapshot: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), reports)
		},
	}
}
