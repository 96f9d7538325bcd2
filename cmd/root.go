package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gnoswap-labs/treeform/internal/config"
	"github.com/gnoswap-labs/treeform/internal/render"
)

const defaultTimeout = 5 * time.Minute

// logger is replaced once the configuration has been read.
var logger = zap.Must(zap.NewProduction())

// globals holds the persistent flags and what they resolve to.
type globals struct {
	cfgFile  string
	logLevel string
	verbose  bool
	noColor  bool
	timeout  time.Duration

	cfg     *config.Config
	printer *render.Printer
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:           "treeform",
		Short:         "treeform - rule driven text to tree parsing and tree rewriting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.setup(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.cfgFile, "config", "", "Config file (default .treeform.yaml in the working directory or $HOME)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Development logging")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	pf.DurationVar(&g.timeout, "timeout", defaultTimeout, "Abort after this long")

	rootCmd.AddCommand(
		newInitCmd(g),
		newParseCmd(g),
		newTransformCmd(g),
		newGenerateCmd(g),
		newRunCmd(g),
		newValidateCmd(g),
		newPatternCmd(g),
	)
	return rootCmd
}

func (g *globals) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(g.cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if g.noColor {
		cfg.Output.Color = false
	}
	g.cfg = cfg
	g.printer = render.NewPrinter(cfg.Output.Color)

	l, err := newLogger(cfg.LogLevel, g.verbose)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", config.ErrInvalidValue, level)
	}
	zc := zap.NewProductionConfig()
	if verbose {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// Execute runs the command line and reports a failure through the logger.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil && !errors.Is(err, errReported) {
		logger.Error("Command failed", zap.Error(err))
	}
	_ = logger.Sync()
	return err
}

// errReported marks failures whose details were already printed.
var errReported = errors.New("failures reported")
