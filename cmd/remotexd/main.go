package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/net/trace"

	"github.com/mnohosten/laura-remotex/pkg/config"
	"github.com/mnohosten/laura-remotex/pkg/fabricmetrics"
	"github.com/mnohosten/laura-remotex/pkg/oracle"
	"github.com/mnohosten/laura-remotex/pkg/poolclient"
	"github.com/mnohosten/laura-remotex/pkg/xact"
)

func main() {
	cfg := config.Default()
	apply := config.RegisterFlags(flag.CommandLine, &cfg)
	flag.Parse()
	apply()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "remotexd: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	pool, err := poolclient.Dial(cfg.PoolSocket)
	if err != nil {
		return fmt.Errorf("dial pool manager at %s: %w", cfg.PoolSocket, err)
	}
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracleClient, err := oracle.Dial(ctx, cfg.OracleAddr)
	if err != nil {
		return fmt.Errorf("dial sequencer at %s: %w", cfg.OracleAddr, err)
	}
	defer oracleClient.Close()

	// One process-wide barrier shared by every session's commit
	// window, 2PC or one-shot (§4.3), and one process-wide metrics collector so /metrics
	// reports fabric-wide totals. Sessions themselves are created per
	// client connection once the pool-manager accept loop is wired up.
	barrier := &xact.Barrier{}
	metrics := &fabricmetrics.Collector{}
	_ = barrier
	_ = metrics

	if cfg.TraceHTTPAddr != "" {
		trace.AuthRequest = func(req *http.Request) (any, sensitive bool) { return true, true }
		http.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			fabricmetrics.NewExporter(metrics, "remotex").WriteMetrics(w)
		})
		go func() {
			fmt.Fprintf(os.Stderr, "remotexd: trace http listening on %s\n", cfg.TraceHTTPAddr)
			if err := http.ListenAndServe(cfg.TraceHTTPAddr, nil); err != nil {
				fmt.Fprintf(os.Stderr, "remotexd: trace http: %v\n", err)
			}
		}()
	}

	fmt.Fprintf(os.Stdout, "remotexd: pool=%s oracle=%s\n", cfg.PoolSocket, cfg.OracleAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
