// Package cli implements physioctl, the offline client for the analytics
// engine. Every command reads a record file, runs one analysis locally and
// prints the result as JSON or YAML.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aryiadm/physio-threat-engine/internal/analytics"
	"github.com/Aryiadm/physio-threat-engine/internal/config"
	"github.com/Aryiadm/physio-threat-engine/internal/logging"
)

type app struct {
	file       string
	configPath string
	output     string
	logLevel   string
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer

	logger *logging.Logger
	engine *analytics.Engine
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewRootCommandWithIO(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRootCommand(in, out, errOut)
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{stdin: in, stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:   "physioctl",
		Short: "Offline physio threat analytics over a record file",
		Long: `physioctl runs the physio threat engine locally against a file of daily
health records. Files are JSON or YAML: a list of records, or an object with a
"records" list. Use --file - to read from stdin.

Examples:
  physioctl trust -f records.json --from 2024-03-01
  physioctl anomaly -f records.yaml --only-flagged
  physioctl simulate -f records.json --mode spoof --fraction 0.2 --seed 7`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&a.file, "file", "f", "", "record file (JSON or YAML, - for stdin)")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file for analytics and simulation settings")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "output format: json or yaml")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if a.output != "json" && a.output != "yaml" {
			return fmt.Errorf("--output must be json or yaml, got %q", a.output)
		}
		return a.init(cmd.Context())
	}
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		if a.logger != nil {
			_ = a.logger.Close()
		}
		return nil
	}

	cmd.AddCommand(
		newTrustCmd(a),
		newFederatedCmd(a),
		newAnomalyCmd(a),
		newCorrelationsCmd(a),
		newSecurityCmd(a),
		newSimulateCmd(a),
	)
	return cmd
}

// init builds the logger and engine once flags are parsed.
func (a *app) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lc := logging.DefaultConfig()
	lc.Level = a.logLevel
	lc.Format = "console"
	logger, err := logging.NewWithWriter(lc, a.stderr, nil)
	if err != nil {
		return err
	}
	a.logger = logger

	engineCfg := analytics.DefaultConfig()
	if a.configPath != "" {
		mgr, err := config.NewConfigManager(a.configPath)
		if err != nil {
			return err
		}
		if err := mgr.Load(ctx); err != nil {
			return fmt.Errorf("load %s: %w", a.configPath, err)
		}
		if err := mgr.Validate(ctx); err != nil {
			return fmt.Errorf("invalid %s: %w", a.configPath, err)
		}
		engineCfg = mgr.Get(ctx).EngineConfig()
	}

	engine, err := analytics.NewEngine(engineCfg, analytics.WithLogger(logger.Named("analytics")))
	if err != nil {
		return err
	}
	a.engine = engine
	return nil
}
