package mhchain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liftedinit/mhchain/internal/api"
	"github.com/liftedinit/mhchain/internal/config"
	"github.com/liftedinit/mhchain/internal/consensus"
	"github.com/liftedinit/mhchain/internal/metrics"
	"github.com/liftedinit/mhchain/internal/metrics/collectors"
	sqlcollectors "github.com/liftedinit/mhchain/internal/metrics/collectors/sql"
	"github.com/liftedinit/mhchain/internal/node"
	"github.com/liftedinit/mhchain/internal/output"
	"github.com/liftedinit/mhchain/internal/pow"
)

const shutdownTimeout = 10 * time.Second

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a ledger node with its HTTP API",
	Long:  `Run a ledger node, serve its HTTP API and reconcile its chain with registered peers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serveConfig := config.LoadServeConfigFromCLI()
		if err := serveConfig.Validate(); err != nil {
			return fmt.Errorf("invalid Serve configuration: %w", err)
		}
		storeConfig := config.LoadStoreConfigFromCLI()
		if err := storeConfig.Validate(); err != nil {
			return fmt.Errorf("invalid Store configuration: %w", err)
		}
		slog.Debug("Command-line arguments", "serveConfig", serveConfig, "store", storeConfig.Backend)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		handleInterrupt(cancel)

		return serve(ctx, serveConfig, storeConfig)
	},
}

func init() {
	flags := ServeCmd.Flags()
	flags.String("host", "0.0.0.0", "HTTP API listen host")
	flags.UintP("port", "p", 5000, "HTTP API listen port")
	flags.StringSlice("peers", nil, "Peers to register at startup (host:port)")
	flags.Duration("resolve-interval", 0, "Resolve against peers periodically (0 disables)")
	flags.Duration("peer-timeout", 5*time.Second, "Timeout for fetching a peer's chain")
	flags.UintP("max-concurrency", "c", 16, "Maximum number of peers queried at once")
	flags.Bool("restore", false, "Load the stored chain at startup")
	flags.Bool("enable-prometheus", false, "Enable Prometheus metrics server")
	flags.String("prometheus-addr", "0.0.0.0:2112", "Address and port of the Prometheus metrics server")

	if err := viper.BindPFlags(flags); err != nil {
		slog.Error("Failed to bind ServeCmd flags", "error", err)
	}
}

func serve(ctx context.Context, cfg config.ServeConfig, storeCfg config.StoreConfig) error {
	p, err := pow.New(cfg.Difficulty)
	if err != nil {
		return err
	}

	store, db, err := openStore(ctx, storeCfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	observer := metrics.NewNodeObserver()
	n, err := node.New(p, node.Options{
		ID:       cfg.NodeID,
		Source:   consensus.NewFetcher(cfg.PeerTimeout, cfg.MaxConcurrency),
		Store:    store,
		Observer: observer,
	})
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	defer n.Close()
	slog.Info("Node created", "id", n.ID, "difficulty", p.Prefix)

	for _, address := range cfg.Peers {
		peer, err := n.Peers.Register(address)
		if err != nil {
			return fmt.Errorf("invalid peer: %w", err)
		}
		slog.Info("Registered peer", "peer", peer)
	}

	if cfg.Restore {
		if _, err := n.Load(ctx); err != nil {
			if !errors.Is(err, output.ErrNoChain) {
				return err
			}
			slog.Info("No stored chain, starting from genesis")
		}
	}

	if cfg.EnablePrometheus {
		metricsServer, err := startMetrics(cfg.PrometheusAddr, n, observer, db)
		if err != nil {
			return err
		}
		defer shutdownServer(metricsServer, "metrics")
	}

	if cfg.ResolveInterval > 0 {
		go n.RunResolver(ctx, cfg.ResolveInterval)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(n),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API listening", "addr", cfg.Addr())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP API failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Abort mining so in-flight /mine requests return before shutdown waits on them.
	n.Close()
	shutdownServer(server, "HTTP API")
	return nil
}

func startMetrics(addr string, n *node.Node, observer *metrics.NodeObserver, db *sql.DB) (*http.Server, error) {
	cs, err := collectors.DefaultRegistry.CreateCollectors(collectors.Sources{Ledger: n.Ledger, Peers: n.Peers})
	if err != nil {
		return nil, fmt.Errorf("failed to create collectors: %w", err)
	}
	cs = append(cs, observer)

	if db != nil {
		sqlCollectors, err := sqlcollectors.DefaultSqlRegistry.CreateCollectors(db)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQL collectors: %w", err)
		}
		cs = append(cs, sqlCollectors...)
	}

	server, err := metrics.CreateMetricsServer(addr, cs...)
	if err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}
	return server, nil
}

func shutdownServer(server *http.Server, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Failed to shut down server", "server", name, "error", err)
		return
	}
	slog.Info("Server stopped", "server", name)
}

// handleInterrupt handles interrupt signals for graceful shutdown.
func handleInterrupt(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		slog.Info("Received interrupt signal, shutting down...")
		cancel()
	}()
}
