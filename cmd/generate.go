package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnoswap-labs/treeform/textgen"
)

type generateOptions struct {
	rules     string
	grammar   string
	transform string
}

func newGenerateCmd(g *globals) *cobra.Command {
	o := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate <files...|->",
		Short: "Write trees back out as text",
		Long: `Expand trees into text with a generator rule file. Inputs ending in .json
are tree documents; anything else is parsed with the grammar first and can be
transformed before generation.

Examples:
  treeform generate --rules ini-out.yaml tree.json
  treeform generate --rules ini-out.yaml --grammar ini.yaml --transform lower.yaml settings.ini`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, o, args)
		},
	}
	cmd.Flags().StringVarP(&o.rules, "rules", "r", "", "Generator rule file (default generate.rules)")
	cmd.Flags().StringVarP(&o.grammar, "grammar", "g", "", "Grammar for non-JSON inputs (default parse.grammar)")
	cmd.Flags().StringVarP(&o.transform, "transform", "t", "", "Transform with this rule set before generating")
	return cmd
}

func loadGenerator(g *globals, path string) (*textgen.Generator, error) {
	if path == "" {
		path = g.cfg.Generate.Rules
	}
	if path == "" {
		return nil, fmt.Errorf("no generator rules: use --rules or set generate.rules")
	}
	rules, err := textgen.LoadRules(path)
	if err != nil {
		return nil, err
	}
	return textgen.New(rules)
}

func runGenerate(cmd *cobra.Command, g *globals, o *generateOptions, args []string) error {
	gen, err := loadGenerator(g, o.rules)
	if err != nil {
		return err
	}
	var tr *transformer
	if o.transform != "" {
		if tr, err = loadTransformer(g, o.transform, nil); err != nil {
			return err
		}
	}
	env, err := optionalParseEnv(g, o.grammar, args)
	if err != nil {
		return err
	}
	if env != nil {
		defer env.close()
	}

	out := cmd.OutOrStdout()
	for _, path := range args {
		t, err := loadTree(path, cmd.InOrStdin(), env)
		if err != nil {
			return err
		}
		if tr != nil {
			res := tr.apply(t)
			if !res.OK() {
				fmt.Fprint(out, g.printer.Diagnostics(res.Diagnostics))
				return fmt.Errorf("%s: transform failed: %w", path, errReported)
			}
			t = res.Tree
		}
		text, err := gen.Generate(t)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprint(out, text)
	}
	return nil
}
