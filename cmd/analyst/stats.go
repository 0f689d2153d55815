package analyst

import (
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print graph statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return writeJSON(cmd.OutOrStdout(), a.engine.Store().Stats())
		},
	}
}

func newCommunitiesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "communities",
		Short: "Detect communities with label propagation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.close()

			cs := a.engine.Communities()
			if limit > 0 && len(cs) > limit {
				cs = cs[:limit]
			}
			return writeJSON(cmd.OutOrStdout(), cs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many communities, largest first")
	return cmd
}
