package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnoswap-labs/treeform/internal/schema"
)

func newValidateCmd(g *globals) *cobra.Command {
	var printSchema bool
	cmd := &cobra.Command{
		Use:   "validate <tree.json|->",
		Short: "Check a tree JSON document against the tree schema",
		Long: `Validate a tree JSON document against the embedded schema.

Examples:
  treeform validate tree.json
  treeform parse --grammar ini.yaml --json settings.ini | treeform validate -
  treeform validate --schema`,
		Args: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if printSchema {
				_, err := out.Write(schema.Schema())
				return err
			}
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			violations, err := schema.Validate(data)
			if err == nil {
				fmt.Fprint(out, g.printer.OK(args[0]+" is a valid tree document"))
				return nil
			}
			if !errors.Is(err, schema.ErrInvalidDocument) {
				return err
			}
			for _, v := range violations {
				fmt.Fprint(out, g.printer.Error(v.String()))
			}
			return fmt.Errorf("%s: %d schema violations: %w", args[0], len(violations), errReported)
		},
	}
	cmd.Flags().BoolVar(&printSchema, "schema", false, "Print the schema instead")
	return cmd
}
