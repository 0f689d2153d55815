package analyst

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/reasoning"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

func newAskCmd() *cobra.Command {
	var (
		hops    int
		seeds   []string
		asJSON  bool
		explain bool
	)
	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Answer one or more questions",
		Example: `  analyst ask --data graph.yaml "Do Jennie and Lisa share the same organization?"
  analyst ask --hops 3 "How are Jennie and BIGBANG connected?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var results []*types.ReasoningResult
			if len(args) == 1 {
				results = append(results, a.engine.ReasonWith(ctx, reasoning.Request{Query: args[0], Seeds: seeds, Hops: hops}))
			} else {
				results, err = a.engine.ReasonBatch(ctx, args)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if len(results) == 1 {
					return writeJSON(out, results[0])
				}
				return writeJSON(out, results)
			}
			for _, res := range results {
				printResult(out, res, explain)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hops, "hops", 0, "hop budget (1-3), 0 uses the intent default")
	cmd.Flags().StringSliceVar(&seeds, "seed", nil, "entity to reason from, repeatable")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full reasoning result as JSON")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the reasoning steps")
	return cmd
}

func printResult(w io.Writer, res *types.ReasoningResult, explain bool) {
	fmt.Fprintf(w, "Q: %s\n", res.Query)
	fmt.Fprintf(w, "A: %s\n", res.RenderedText)
	fmt.Fprintf(w, "   intent=%s outcome=%s confidence=%.2f\n", res.Intent, res.Outcome, res.Confidence)
	if res.Error != types.CodeNone {
		fmt.Fprintf(w, "   error=%s\n", res.Error)
	}
	if explain {
		for _, line := range res.Explanation {
			fmt.Fprintf(w, "   - %s\n", line)
		}
	}
	fmt.Fprintln(w)
}
