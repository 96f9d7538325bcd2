package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/treeform/internal/config"
	"github.com/gnoswap-labs/treeform/internal/render"
	"github.com/gnoswap-labs/treeform/tree"
)

type parseOptions struct {
	grammar string
	json    bool
	query   string
	events  bool
	naive   bool
}

func newParseCmd(g *globals) *cobra.Command {
	o := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse <files...|->",
		Short: "Parse text files into trees",
		Long: `Parse each file with a grammar and print the resulting tree.

Examples:
  treeform parse --grammar ini.yaml settings.ini
  treeform parse --grammar ini.yaml --json --query children.0.attrs settings.ini
  treeform parse --grammar ini.yaml --events - < settings.ini`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, g, o, args)
		},
	}
	cmd.Flags().StringVarP(&o.grammar, "grammar", "g", "", "Grammar file (default parse.grammar)")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print trees as JSON")
	cmd.Flags().StringVarP(&o.query, "query", "q", "", "Print only this gjson path of the JSON tree")
	cmd.Flags().BoolVar(&o.events, "events", false, "Print the parse event log")
	cmd.Flags().BoolVar(&o.naive, "naive", false, "Disable the memoized boundary search")
	return cmd
}

func runParse(cmd *cobra.Command, g *globals, o *parseOptions, args []string) error {
	env, err := newParseEnv(g, o.grammar, o.naive, o.events)
	if err != nil {
		return err
	}
	defer env.close()

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		data, err := readInput(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		p, err := env.parse(string(data))
		if len(args) > 1 {
			fmt.Fprint(out, g.printer.Header(path))
		}
		if p != nil && len(p.events) > 0 {
			fmt.Fprint(out, g.printer.Events(p.events, p.text))
		}
		if err != nil {
			logger.Error("Parse failed", zap.String("path", path), zap.Error(err))
			fmt.Fprint(out, g.printer.Error(err.Error()))
			failed++
			continue
		}
		format := g.cfg.Output.Format
		if o.json || o.query != "" {
			format = config.FormatJSON
		}
		if err := writeTree(out, g.printer, p.tree, format, o.query); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed to parse: %w", failed, len(args), errReported)
	}
	return nil
}

// writeTree prints t in the configured format. query selects part of the
// JSON form.
func writeTree(w io.Writer, p *render.Printer, t *tree.Tree, format, query string) error {
	if format != config.FormatJSON {
		_, err := fmt.Fprint(w, p.Tree(t))
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	if query != "" {
		res := gjson.GetBytes(data, query)
		if !res.Exists() {
			return fmt.Errorf("query %q matched nothing", query)
		}
		_, err = fmt.Fprintln(w, res.Raw)
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
