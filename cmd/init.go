package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/treeform/internal/config"
)

const defaultConfigFile = ".treeform.yaml"

// starterGrammar parses "key = value" lines grouped under "[section]" headers.
const starterGrammar = `root: File
whitespace: [" ", "\t"]
rules:
  - name: File
  - name: Section
    parents: [File]
    patterns:
      - type: Section
        quick: "[:[name]]\n"
  - name: Comment
    parents: [File, Section]
    patterns:
      - type: Comment
        elements:
          - {kind: optional-ws}
          - {kind: literal, text: "#"}
          - {kind: regex, text: "[^\\n]*", export: text}
          - {kind: lf}
  - name: Assign
    parents: [Section]
    patterns:
      - type: Assign
        elements:
          - {kind: optional-ws}
          - {kind: regex, text: "[A-Za-z0-9_.-]+", export: key}
          - {kind: optional-ws}
          - {kind: literal, text: "="}
          - {kind: optional-ws}
          - {kind: content, export: value}
          - {kind: optional-ws}
          - {kind: lf}
`

func newInitCmd(g *globals) *cobra.Command {
	var (
		grammarPath string
		force       bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration and grammar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath := g.cfgFile
			if cfgPath == "" {
				cfgPath = defaultConfigFile
			}
			if err := initConfigurationFile(cfgPath, grammarPath, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created/updated: %s\n", cfgPath)

			if grammarPath == "" {
				return nil
			}
			if err := writeNew(grammarPath, []byte(starterGrammar), force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Grammar file created: %s\n", grammarPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&grammarPath, "grammar", "grammar.yaml", "Starter grammar to write; empty skips it")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}

func initConfigurationFile(configurationPath, grammarPath string, force bool) error {
	cfg := config.Default()
	cfg.Parse.Grammar = grammarPath

	d, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return writeNew(configurationPath, d, force)
}

func writeNew(path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}
