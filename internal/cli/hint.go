package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHintCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "hint TEXT",
		Short: "Print the autocomplete candidates offered for TEXT",
		Long: "Print the autocomplete candidates offered when TEXT is typed, for\n" +
			"example \":sm\" for emoji or \"```go\" for code fence languages.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ts, closeFn, err := triggers(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			t, k, ok := match(ts, args[0])
			if !ok {
				return fmt.Errorf("no hint trigger starts %q", args[0])
			}
			if len(k) > cfg.Hint.MaxKey {
				return fmt.Errorf("key %q is longer than %d", k, cfg.Hint.MaxKey)
			}
			items, err := t.src.Candidates(cmd.Context(), k)
			if err != nil {
				return fmt.Errorf("hint %s: %w", t.prefix, err)
			}
			out := cmd.OutOrStdout()
			for i, c := range items {
				if i == cfg.Hint.Limit {
					break
				}
				fmt.Fprintf(out, "%s\t%q\n", c.Display, c.Value)
			}
			return nil
		},
	}
}
