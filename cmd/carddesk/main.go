// Command carddesk runs the client card request console and offers registry
// operations from the terminal.
//
// Usage:
//
//	carddesk serve --config carddesk.yaml
//	carddesk clients list --registry-url http://localhost:8081/api/v1
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.eggybyte.com/carddesk/internal/config"
	"go.eggybyte.com/carddesk/internal/version"
	"go.eggybyte.com/carddesk/logx"
)

type globalFlags struct {
	configFile  string
	registryURL string
	logLevel    string
}

// overrides turns explicitly set flags into configuration keys.
func (g *globalFlags) overrides() map[string]string {
	out := map[string]string{}
	if g.registryURL != "" {
		out["REGISTRY_URL"] = g.registryURL
	}
	if g.logLevel != "" {
		out["LOG_LEVEL"] = g.logLevel
	}
	return out
}

func (g *globalFlags) file() string {
	if g.configFile != "" {
		return g.configFile
	}
	return os.Getenv("CONFIG_FILE")
}

// load binds the configuration and builds the logger it describes, writing to w.
func (g *globalFlags) load(ctx context.Context, w io.Writer) (*config.AppConfig, *config.Loader, *logx.Logger, error) {
	bootstrap := logx.New(logx.WithWriter(w), logx.WithLevel(slog.LevelWarn))
	cfg, loader, err := config.Load(ctx, bootstrap, g.file(), g.overrides())
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logx.New(append(cfg.LogOptions(), logx.WithWriter(w))...)
	return cfg, loader, logger, nil
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "carddesk",
		Short:         "Client card request console",
		Long:          "carddesk serves a web console over the Client Registry API and runs registry operations from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.String(),
	}
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML or JSON config file (default $CONFIG_FILE)")
	pf.StringVar(&flags.registryURL, "registry-url", "", "Client Registry API base URL (overrides REGISTRY_URL)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(newServeCmd(flags), newClientsCmd(flags), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
