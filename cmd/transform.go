package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/treeform/internal/render"
	"github.com/gnoswap-labs/treeform/transform"
	"github.com/gnoswap-labs/treeform/tree"
)

type transformOptions struct {
	rules   string
	grammar string
	side    map[string]string
	diff    bool
}

func newTransformCmd(g *globals) *cobra.Command {
	o := &transformOptions{}
	cmd := &cobra.Command{
		Use:   "transform <files...|->",
		Short: "Rewrite trees with a transformation rule set",
		Long: `Apply a rule set to trees. Inputs ending in .json are tree documents;
anything else is parsed with the grammar first.

Examples:
  treeform transform --rules lower.yaml tree.json
  treeform transform --rules lower.yaml --grammar ini.yaml --diff settings.ini
  treeform transform --rules link.yaml --side symbols=symbols.json tree.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(cmd, g, o, args)
		},
	}
	cmd.Flags().StringVarP(&o.rules, "rules", "r", "", "Rule set file (default transform.rules)")
	cmd.Flags().StringVarP(&o.grammar, "grammar", "g", "", "Grammar for non-JSON inputs (default parse.grammar)")
	cmd.Flags().StringToStringVar(&o.side, "side", nil, "Side tree as name=tree.json, repeatable")
	cmd.Flags().BoolVar(&o.diff, "diff", false, "Show a diff between the input and output trees")
	return cmd
}

// transformer bundles a rule set with its side trees.
type transformer struct {
	t    *transform.Transformer
	side []*tree.Tree
}

func loadTransformer(g *globals, rulesPath string, sideFlags map[string]string) (*transformer, error) {
	if rulesPath == "" {
		rulesPath = g.cfg.Transform.Rules
	}
	if rulesPath == "" {
		return nil, fmt.Errorf("no rules: use --rules or set transform.rules")
	}
	rules, err := transform.LoadRules(rulesPath)
	if err != nil {
		return nil, err
	}

	paths := maps.Clone(g.cfg.Transform.SideTrees)
	if paths == nil {
		paths = map[string]string{}
	}
	maps.Copy(paths, sideFlags)

	out := &transformer{t: transform.New(rules)}
	for _, name := range rules.SideTrees {
		path, ok := paths[name]
		if !ok {
			return nil, fmt.Errorf("side tree %q is not given: use --side %s=tree.json", name, name)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		t, err := decodeTree(data)
		if err != nil {
			return nil, fmt.Errorf("side tree %s: %w", path, err)
		}
		out.side = append(out.side, t)
	}
	return out, nil
}

func (tr *transformer) apply(src *tree.Tree) *transform.Result {
	return tr.t.Transform(src, tr.side)
}

func runTransform(cmd *cobra.Command, g *globals, o *transformOptions, args []string) error {
	tr, err := loadTransformer(g, o.rules, o.side)
	if err != nil {
		return err
	}
	env, err := optionalParseEnv(g, o.grammar, args)
	if err != nil {
		return err
	}
	if env != nil {
		defer env.close()
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		src, err := loadTree(path, cmd.InOrStdin(), env)
		if err != nil {
			return err
		}
		if len(args) > 1 {
			fmt.Fprint(out, g.printer.Header(path))
		}
		res := tr.apply(src)
		if err := writeTree(out, g.printer, res.Tree, g.cfg.Output.Format, ""); err != nil {
			return err
		}
		if o.diff {
			writeDiff(out, g.printer, src, res.Tree)
		}
		if !res.OK() {
			fmt.Fprint(out, g.printer.Diagnostics(res.Diagnostics))
			logger.Error("Transform reported diagnostics", zap.String("path", path), zap.Int("count", len(res.Diagnostics)))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs had diagnostics: %w", failed, len(args), errReported)
	}
	return nil
}

func writeDiff(w io.Writer, p *render.Printer, before, after *tree.Tree) {
	plain := render.NewPrinter(false)
	d, changed := p.Diff(plain.Tree(before), plain.Tree(after))
	if !changed {
		fmt.Fprint(w, p.OK("no changes"))
		return
	}
	fmt.Fprint(w, d)
}

// optionalParseEnv builds a parse environment when some input needs parsing.
func optionalParseEnv(g *globals, grammarPath string, args []string) (*parseEnv, error) {
	needed := false
	for _, a := range args {
		if !isTreeFile(a) && a != "-" {
			needed = true
		}
	}
	if !needed && grammarPath == "" {
		return nil, nil
	}
	return newParseEnv(g, grammarPath, false, false)
}
