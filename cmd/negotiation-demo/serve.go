package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crossborder/internal/broadcast"
	"crossborder/internal/metrics"
	"crossborder/internal/sequencer"
	httptransport "crossborder/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the negotiation over HTTP and a websocket event stream",
	Long: `Runs one shared sequencer behind a JSON API:

  GET  /api/negotiation             current snapshot
  POST /api/negotiation/start       press start (202, or 409 when disabled)
  POST /api/negotiation/results     press show-results
  POST /api/negotiation/transform   press apply-transformation
  GET  /api/records                 ANPR and German records
  GET  /api/alignments              the six field alignments
  GET  /api/report                  alignment report
  GET  /ws                          live event stream
  GET  /metrics                     Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	log := currentLogger()
	addr := c.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hub := broadcast.NewHub[sequencer.Event](64)
	hub.OnDrop(m.StreamDropped.Inc)
	defer hub.Close()

	seq := newSequencer(c.Demo.Pace, sequencer.MultiSink(sequencer.SinkFunc(hub.Publish), m.Sink()))
	handler := httptransport.NewHandler(ctx, seq, hub, m, log.Named("http"),
		httptransport.WithOriginPatterns(c.Server.AllowedOrigins),
		httptransport.WithReportThreshold(c.Report.Threshold),
	)
	srv := &http.Server{
		Addr:              addr,
		Handler:           httptransport.NewRouter(handler, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := seq.RunTicker(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Closing the hub ends every open event stream.
		hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
