package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/defistate/lending-console-go/api"
	"github.com/defistate/lending-console-go/chat"
	"github.com/defistate/lending-console-go/estimate"
	"github.com/defistate/lending-console-go/markets"
	"github.com/defistate/lending-console-go/prefs"
	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/streams/jsonrpc/server"
	"github.com/defistate/lending-console-go/streams/poolfeed"
	"github.com/defistate/lending-console-go/tui"
	"github.com/defistate/lending-console-go/wizard"
)

const feedBufferSize = 1

// poolArg resolves an optional pool id argument against the configuration.
func poolArg(a *app, raw string) (blend.PoolID, error) {
	if raw == "" {
		return a.cfg.PoolID(), nil
	}
	return blend.ParsePoolID(raw)
}

// --- tui ---

func newTUICmd(appFn func() *app) *cobra.Command {
	var pool string
	var browse bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			ctx := cmd.Context()

			store, err := prefs.Open(a.cfg.PrefsDB)
			if err != nil {
				return err
			}
			defer store.Close()

			var start blend.PoolID
			if !browse {
				if start, err = poolArg(a, pool); err != nil {
					return err
				}
			}

			logger := a.logger.With("component", "tui")
			m, err := tui.New(ctx, tui.Config{
				Logger:  logger,
				Network: a.network,
				Markets: a.markets(),
				OpenFeed: func(ctx context.Context, id blend.PoolID) (tui.Feed, error) {
					return poolfeed.NewFeed(ctx, poolfeed.Config{
						Loader:     a.loader,
						PoolID:     id,
						Logger:     a.logger.With("component", "poolfeed", "pool", id.Compact()),
						BufferSize: feedBufferSize,
						Interval:   a.cfg.RefreshInterval,
					})
				},
				Prefs:       store,
				Process:     wizard.SimulatedProcess(a.cfg.ProcessingDelay),
				TypingDelay: chat.RandomDelay(a.cfg.MinTypingDelay, a.cfg.MaxTypingDelay),
				Metrics:     a.metrics,
				Pool:        start,
			})
			if err != nil {
				return err
			}
			defer m.Close()

			fmt.Println(Green + "Starting Blend lending console..." + Reset)
			fmt.Printf("Logs are being written to '%s'\n", a.cfg.LogFile)

			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
			final, err := p.Run()
			if fm, ok := final.(tui.Model); ok {
				fm.Close()
			}
			if errors.Is(err, tea.ErrProgramKilled) {
				return exitOnCanceled(ctx.Err())
			}
			return err
		},
	}
	cmd.Flags().StringVar(&pool, "pool", "", "Pool to open on start; defaults to the configured pool.")
	cmd.Flags().BoolVar(&browse, "browse", false, "Start on the market list instead of a pool.")
	return cmd
}

// --- markets ---

func newMarketsCmd(appFn func() *app) *cobra.Command {
	var sortBy string
	var inactive bool
	var search string
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "List the lending pools of the network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := markets.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			reg := appFn().markets()
			list := reg.Search(search, inactive)
			printMarkets(cmd.OutOrStdout(), markets.Sort(list, key), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", string(markets.SortTVL), "Sort by tvl, apy or utilization.")
	cmd.Flags().BoolVar(&inactive, "inactive", true, "Include inactive pools.")
	cmd.Flags().StringVar(&search, "search", "", "Only list pools whose name contains this text.")
	return cmd
}

// --- pool ---

func newPoolCmd(appFn func() *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "pool [pool-id]",
		Short: "Show the live figures of a pool",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			ctx := cmd.Context()
			var raw string
			if len(args) == 1 {
				raw = args[0]
			}
			id, err := poolArg(a, raw)
			if err != nil {
				return err
			}

			if !watch {
				snap, err := a.loader.Load(ctx, id)
				if err != nil {
					return exitOnCanceled(err)
				}
				return printPool(cmd.OutOrStdout(), snap)
			}

			feed, err := poolfeed.NewFeed(ctx, poolfeed.Config{
				Loader:     a.loader,
				PoolID:     id,
				Logger:     a.logger.With("component", "poolfeed", "pool", id.Compact()),
				BufferSize: feedBufferSize,
				Interval:   a.cfg.RefreshInterval,
			})
			if err != nil {
				return err
			}
			fmt.Printf(Gray+"Watching %s every %s. Press Ctrl+C to stop."+Reset+"\n", id.Compact(), a.cfg.RefreshInterval)
			for snap := range feed.Snapshots() {
				if !snap.Ready() {
					continue
				}
				fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")
				if err := printPool(cmd.OutOrStdout(), snap); err != nil {
					return err
				}
			}
			return exitOnCanceled(<-feed.Err())
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep refreshing until interrupted.")
	return cmd
}

// --- ask ---

func newAskCmd(appFn func() *app) *cobra.Command {
	var pool string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the lending assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			question := strings.Join(args, " ")

			var summary *estimate.PoolSummary
			if pool != "" {
				id, err := blend.ParsePoolID(pool)
				if err != nil {
					return err
				}
				snap, err := a.loader.Load(cmd.Context(), id)
				if err != nil {
					return exitOnCanceled(err)
				}
				if d, ok := estimate.FromSnapshot(snap); ok {
					summary = &d.Summary
				}
			}

			session, err := chat.NewSession(chat.SessionConfig{
				Logger:  a.logger.With("component", "assistant"),
				Pool:    func() *estimate.PoolSummary { return summary },
				Delay:   chat.NoDelay,
				Metrics: a.metrics,
			})
			if err != nil {
				return err
			}
			reply, err := session.Ask(cmd.Context(), question)
			if err != nil {
				return exitOnCanceled(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&pool, "pool", "", "Answer questions about this pool from live data.")
	return cmd
}

// --- serve ---

func newServeCmd(appFn func() *app) *cobra.Command {
	var addr string
	var withRPC bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the market, pool and assistant data over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFn()
			ctx := cmd.Context()
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.HTTPAddr
			}

			tracker, err := poolfeed.NewTracker(ctx, poolfeed.TrackerConfig{
				Loader:   a.loader,
				Logger:   a.logger.With("component", "tracker"),
				Interval: a.cfg.RefreshInterval,
			})
			if err != nil {
				return err
			}
			defer tracker.Close()

			cfg := api.Config{
				Logger:    a.logger.With("component", "api"),
				Markets:   a.markets(),
				Pools:     tracker,
				Metrics:   a.metrics,
				Gatherer:  a.registry,
				RateLimit: rate.Limit(a.cfg.RateLimit),
				RateBurst: a.cfg.RateBurst,
			}
			if withRPC {
				rpcSrv, err := server.NewRPCServer(a.source)
				if err != nil {
					return err
				}
				defer rpcSrv.Stop()
				cfg.RPC = rpcSrv
			}
			srv, err := api.New(cfg)
			if err != nil {
				return err
			}

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("HTTP server listening", "addr", addr, "rpc", withRPC)
				errCh <- httpSrv.ListenAndServe()
			}()
			fmt.Printf(Green+"Serving on %s"+Reset+"\n", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return exitOnCanceled(ctx.Err())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address; defaults to http_addr from the configuration.")
	cmd.Flags().BoolVar(&withRPC, "rpc", true, "Expose the data source as JSON-RPC at /rpc.")
	return cmd
}
