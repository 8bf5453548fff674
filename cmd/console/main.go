package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/defistate/lending-console-go/cmd/console/config"
	"github.com/defistate/lending-console-go/markets"
	"github.com/defistate/lending-console-go/metrics"
	"github.com/defistate/lending-console-go/pkg/logging"
	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/source"
	"github.com/defistate/lending-console-go/source/mock"
	"github.com/defistate/lending-console-go/streams/jsonrpc/client"
)

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
)

// app holds everything a command needs once the configuration is loaded.
type app struct {
	cfg      *config.ConsoleConfig
	network  stellar.Network
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	source   source.Source
	loader   *source.Loader

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// newApp opens the log file and the data source described by cfg.
func newApp(ctx context.Context, cfg *config.ConsoleConfig) (*app, error) {
	rootLogger, logFile, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: rootLogger, closers: []io.Closer{logFile}}

	a.network, err = stellar.Lookup(cfg.Network)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewMetrics(a.registry)

	var src source.Source
	switch cfg.Source {
	case config.SourceRPC:
		c, err := client.Dial(ctx, client.Config{
			URL:    cfg.RPCURL,
			Logger: rootLogger.With("component", "jsonrpc-client"),
		})
		if err != nil {
			rootLogger.Error("Failed to initialize Client", "url", cfg.RPCURL, "error", err)
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, closerFunc(func() error { c.Close(); return nil }))
		src = c
	default:
		src = mock.New(mock.WithLatency(cfg.MockLatency))
	}
	a.source = source.NewCached(src, cfg.CacheTTL)

	a.loader, err = source.NewLoader(source.LoaderConfig{
		Source:  a.source,
		Logger:  rootLogger.With("component", "loader"),
		Metrics: a.metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	rootLogger.Info("Console started", "network", a.network.Name, "source", cfg.Source)
	return a, nil
}

// markets returns the catalogue entries of the pools deployed on the
// configured network.
func (a *app) markets() *markets.Registry {
	var list []markets.Market
	for _, m := range markets.Catalogue() {
		if _, ok := a.network.Pool(m.ID); ok {
			list = append(list, m)
		}
	}
	return markets.NewRegistry(list)
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, closeApp := newRootCmd()
	err := root.ExecuteContext(ctx)
	closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, Red+"Error: "+err.Error()+Reset)
		stop()
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The returned func releases whatever
// the command that ran opened.
func newRootCmd() (*cobra.Command, func()) {
	var (
		configPath string
		a          *app
	)

	root := &cobra.Command{
		Use:           "lendscope",
		Short:         "Terminal dashboard for Blend lending pools on Stellar",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			network, _ := cmd.Flags().GetString("network")
			src, _ := cmd.Flags().GetString("source")
			cfg, err := config.LoadConfig(config.Options{
				Path:     configPath,
				Required: cmd.Flags().Changed("config"),
				Network:  network,
				Source:   src,
			})
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			a, err = newApp(cmd.Context(), cfg)
			return err
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the configuration file.")
	root.PersistentFlags().String("network", "", "Stellar network (mainnet or testnet).")
	root.PersistentFlags().String("source", "", "Data source (mock or rpc).")

	appFn := func() *app { return a }
	tuiCmd := newTUICmd(appFn)
	root.RunE = tuiCmd.RunE
	root.Flags().AddFlagSet(tuiCmd.Flags())
	root.AddCommand(
		tuiCmd,
		newMarketsCmd(appFn),
		newPoolCmd(appFn),
		newAskCmd(appFn),
		newServeCmd(appFn),
	)
	return root, func() {
		if a != nil {
			a.Close()
		}
	}
}

// exitOnCanceled hides the error of a command interrupted by a signal.
func exitOnCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		fmt.Println("\n" + Yellow + "Shutting down..." + Reset)
		return nil
	}
	return err
}
