package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/treeform/parser"
)

func newPatternCmd(_ *globals) *cobra.Command {
	var (
		whitespace []string
		lines      bool
		typeName   string
	)
	cmd := &cobra.Command{
		Use:   "pattern <quick notation>",
		Short: "Expand quick pattern notation into pattern elements",
		Long: `Print the pattern derived from quick notation, ready to paste into a grammar.
Holes are written :[name] or :[name:ContentType]; a backslash escapes the
next character.

Examples:
  treeform pattern 'let :[name] = :[value:Expr];' --lines --type Let`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			elems, err := parser.QuickPattern(args[0], parser.QuickOptions{Whitespace: whitespace, Lines: lines})
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(parser.Pattern{TypeName: typeName, Elements: elems})
		},
	}
	cmd.Flags().StringSliceVar(&whitespace, "ws", nil, "Whitespace strings (default space and tab)")
	cmd.Flags().BoolVar(&lines, "lines", false, "End the pattern with a line feed")
	cmd.Flags().StringVar(&typeName, "type", "", "Node type produced by the pattern")
	return cmd
}
