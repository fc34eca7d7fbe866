package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"relayd/internal/config"
)

// flagValues holds command-line overrides. Only flags the user actually set
// are applied on top of the environment and config file.
type flagValues struct {
	configPath     string
	addr           string
	upstreamURL    string
	defaultModel   string
	logLevel       string
	logFormat      string
	lineMode       string
	requestTimeout time.Duration
}

func newRootCmd(getenv func(string) string, stdout, stderr io.Writer) *cobra.Command {
	fv := &flagValues{}
	root := &cobra.Command{
		Use:           "relayd",
		Short:         "Streaming relay for an Ollama-compatible inference server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	bindFlags(root, fv)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, fv, getenv)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(stderr, cfg.LogFormat, cfg.LogLevel))
		},
	}
	modelsCmd := &cobra.Command{
		Use:     "models",
		Short:   "List models installed on the upstream",
		Example: "  relayd models --upstream-url http://gpu-box:11434",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, fv, getenv)
			if err != nil {
				return err
			}
			return listModels(cmd.Context(), cfg, newLogger(stderr, cfg.LogFormat, cfg.LogLevel), cmd.OutOrStdout())
		},
	}
	root.AddCommand(serveCmd, modelsCmd)
	// Bare `relayd` serves.
	root.RunE = serveCmd.RunE
	return root
}

// bindFlags registers the configuration flags shared by every subcommand.
func bindFlags(cmd *cobra.Command, fv *flagValues) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "", "Path to a .yaml/.yml/.json/.toml config file (defaults RELAYD_CONFIG)")
	pf.StringVar(&fv.addr, "addr", config.DefaultAddr, "HTTP listen address (defaults RELAYD_ADDR)")
	pf.StringVar(&fv.upstreamURL, "upstream-url", config.DefaultUpstreamURL, "Inference server base URL (defaults OLLAMA_URL)")
	pf.StringVar(&fv.defaultModel, "default-model", config.DefaultModel, "Model used when a request names none (defaults MODEL_NAME)")
	pf.StringVar(&fv.logLevel, "log-level", "info", "Log level: off|error|info|debug (defaults RELAYD_LOG_LEVEL)")
	pf.StringVar(&fv.logFormat, "log-format", "auto", "Log format: auto|console|json")
	pf.StringVar(&fv.lineMode, "line-mode", config.LineModeCarry, "NDJSON line handling across reads: carry|chunk")
	pf.DurationVar(&fv.requestTimeout, "request-timeout", 5*time.Minute, "Upper bound for one upstream exchange, 0 disables")
}

// resolveConfig layers defaults, environment, config file and flags, in
// increasing order of precedence, and validates the result.
func resolveConfig(cmd *cobra.Command, fv *flagValues, getenv func(string) string) (config.Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := config.FromEnv(config.Default(), getenv)

	path := fv.configPath
	if path == "" {
		path = getenv("RELAYD_CONFIG")
	}
	if path != "" {
		fileCfg, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = config.Overlay(cfg, fileCfg)
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = fv.addr
	}
	if flags.Changed("upstream-url") {
		cfg.UpstreamURL = fv.upstreamURL
	}
	if flags.Changed("default-model") {
		cfg.DefaultModel = fv.defaultModel
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = fv.logFormat
	}
	if flags.Changed("line-mode") {
		cfg.LineMode = fv.lineMode
	}
	if flags.Changed("request-timeout") {
		cfg.RequestTimeoutSec = int(fv.requestTimeout / time.Second)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
