package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gnoswap-labs/treeform/internal/batch"
	"github.com/gnoswap-labs/treeform/internal/render"
	"github.com/gnoswap-labs/treeform/textgen"
)

type runOptions struct {
	grammar    string
	rules      string
	gen        string
	extensions []string
	outDir     string
	noProgress bool
}

func newRunCmd(g *globals) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <paths...>",
		Short: "Parse, transform and generate every file under the given paths",
		Long: `Run the whole pipeline over files and directories, one file at a time.
Transformation and generation happen when their rules are given by flag or
configuration. With --out, results are written there: generated text keeps
the input name, trees are written as <name>.json.

Examples:
  treeform run --grammar ini.yaml --ext .ini conf/
  treeform run --rules lower.yaml --gen ini-out.yaml --out build/ conf/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, g, o, args)
		},
	}
	cmd.Flags().StringVarP(&o.grammar, "grammar", "g", "", "Grammar file (default parse.grammar)")
	cmd.Flags().StringVarP(&o.rules, "rules", "r", "", "Transformation rule set (default transform.rules)")
	cmd.Flags().StringVar(&o.gen, "gen", "", "Generator rule file (default generate.rules)")
	cmd.Flags().StringSliceVar(&o.extensions, "ext", nil, "File extensions to pick up in directories")
	cmd.Flags().StringVarP(&o.outDir, "out", "o", "", "Write results into this directory")
	cmd.Flags().BoolVar(&o.noProgress, "no-progress", false, "Hide the progress bar")
	return cmd
}

func runPipeline(cmd *cobra.Command, g *globals, o *runOptions, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
	defer cancel()

	env, err := newParseEnv(g, o.grammar, false, false)
	if err != nil {
		return err
	}
	defer env.close()

	var tr *transformer
	if o.rules != "" || g.cfg.Transform.Rules != "" {
		if tr, err = loadTransformer(g, o.rules, nil); err != nil {
			return err
		}
	}
	var gen *textgen.Generator
	if o.gen != "" || g.cfg.Generate.Rules != "" {
		if gen, err = loadGenerator(g, o.gen); err != nil {
			return err
		}
	}
	if o.outDir != "" {
		if err := os.MkdirAll(o.outDir, 0o755); err != nil {
			return err
		}
	}

	opts := batch.Options{Extensions: o.extensions, Logger: logger}
	if !o.noProgress {
		opts.Progress = cmd.ErrOrStderr()
	}
	files, err := batch.Collect(args, opts)
	if err != nil {
		return err
	}

	var stats render.Stats
	start := time.Now()
	report, err := batch.Run(ctx, files, opts, func(_ context.Context, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		stats.Bytes += uint64(len(data))

		p, err := env.parse(string(data))
		if err != nil {
			return err
		}
		if p.cached {
			stats.Cached++
		}
		t := p.tree
		if tr != nil {
			res := tr.apply(t)
			if err := res.Err(); err != nil {
				return err
			}
			t = res.Tree
		}
		stats.Nodes += t.Len()

		if gen != nil {
			text, err := gen.Generate(t)
			if err != nil {
				return err
			}
			return writeResult(o.outDir, filepath.Base(path), []byte(text))
		}
		data, err = json.MarshalIndent(t, "", "  ")
		if err != nil {
			return err
		}
		return writeResult(o.outDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".json", data)
	})
	stats.Files = len(report.Processed) + len(report.Failed)
	stats.Failed = len(report.Failed)
	stats.Elapsed = time.Since(start)

	out := cmd.OutOrStdout()
	for _, f := range report.Failed {
		fmt.Fprint(out, g.printer.Error(fmt.Sprintf("%s: %v", f.Path, f.Err)))
	}
	fmt.Fprint(out, g.printer.Summary(stats))
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d files failed: %w", stats.Failed, stats.Files, errReported)
	}
	return nil
}

func writeResult(dir, name string, data []byte) error {
	if dir == "" {
		return nil
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}
