package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/inkstorm/internal/oracle"
	"github.com/dshills/inkstorm/internal/surface"
)

func newRenderCommand(g *globals) *cobra.Command {
	var (
		modeName string
		html     bool
	)
	cmd := &cobra.Command{
		Use:   "render [FILE]",
		Short: "Print the editing tree of a markdown file and its round trip",
		Long: "Render FILE (or standard input when FILE is - or missing) into the\n" +
			"editing tree of a mode, print the tree one block per line, then the\n" +
			"markdown serialized back from it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			m := cfg.Mode()
			if cmd.Flags().Changed("mode") {
				if m, err = oracle.ParseMode(modeName); err != nil {
					return err
				}
			}
			text, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			o := oracle.New(oracle.WithLogger(logger))
			out := cmd.OutOrStdout()
			if html {
				_, err := io.WriteString(out, o.SafeHTML(text))
				return err
			}
			blocks := o.Render(m, text)
			for _, b := range blocks {
				fmt.Fprintln(out, surface.Dump(b))
			}
			fmt.Fprintln(out, "---")
			_, err = io.WriteString(out, o.Serialize(m, blocks...))
			return err
		},
	}
	cmd.Flags().StringVarP(&modeName, "mode", "m", "wysiwyg", "mode to render for: wysiwyg, ir or sv")
	cmd.Flags().BoolVar(&html, "html", false, "print sanitized HTML instead of the tree")
	return cmd
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}
