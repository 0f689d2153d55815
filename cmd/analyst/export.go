package analyst

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	neo4jexport "github.com/huynd2174/Social-Network-Analyst--sub000/pkg/export/neo4j"
	parquetexport "github.com/huynd2174/Social-Network-Analyst--sub000/pkg/export/parquet"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
		ids    []string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the graph as json, yaml, parquet or into neo4j",
		Long: `Export the current graph, or the subgraph induced by --id, in one of:

  json, yaml  an exchange batch, written to --output or stdout
  parquet     entities, relationships, triples and aliases files under --output
  neo4j       merged into the database configured in the neo4j section`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			snap := a.engine.Store().Snapshot()
			batch := snap.Records()
			if len(ids) > 0 {
				batch = snap.Subgraph(ids)
			}

			switch format {
			case "json", "yaml":
				return writeBatch(cmd.OutOrStdout(), output, batch, types.Format(format))
			case "parquet":
				if output == "" {
					return fmt.Errorf("parquet export requires --output")
				}
				w, err := parquetexport.NewWriter(output)
				if err != nil {
					return err
				}
				files, err := w.Write(batch)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			case "neo4j":
				x, err := neo4jexport.New(a.cfg.Neo4j, a.logger.With("component", "neo4j"))
				if err != nil {
					return err
				}
				defer x.Close(ctx)
				if err := x.VerifyConnectivity(ctx); err != nil {
					return fmt.Errorf("failed to connect to neo4j at %s: %w", a.cfg.Neo4j.URI, err)
				}
				rep, err := x.Export(ctx, batch)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rep)
			default:
				return fmt.Errorf("unsupported export format %q", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format (json, yaml, parquet, neo4j)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or directory for parquet")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "restrict the export to these entities, repeatable")
	return cmd
}

func writeBatch(stdout io.Writer, path string, b *types.Batch, format types.Format) error {
	if path == "" {
		return types.EncodeBatch(stdout, b, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := types.EncodeBatch(f, b, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
