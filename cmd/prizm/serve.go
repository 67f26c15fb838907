package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mohammad-safakhou/prizm/internal/bus"
	"github.com/mohammad-safakhou/prizm/internal/hub"
	"github.com/mohammad-safakhou/prizm/internal/server"
	"github.com/mohammad-safakhou/prizm/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCMD() *cobra.Command {
	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, addr)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides general.listen)")
	return serve
}

func runServe(ctx context.Context, addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	a, err := newApp(ctx, metrics)
	if err != nil {
		return err
	}
	defer a.Close()
	if addr == "" {
		addr = a.cfg.General.Listen
	}

	b, err := bus.New(ctx, a.cfg.Delivery, logger)
	if err != nil {
		return fmt.Errorf("delivery: %w", err)
	}
	defer b.Close()

	h := hub.New(logger.Named("hub"), hub.WithMetrics(metrics, b.Name()))
	defer h.Close()
	unsubscribe, err := b.Subscribe(ctx, h.Handle)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer unsubscribe()

	e := server.New(server.Deps{
		Store:     a.store,
		Matcher:   a.matcher,
		Assistant: a.assistant,
		Bus:       b,
		Hub:       h,
		Gatherer:  reg,
		Logger:    logger,
		Provider:  a.cfg.LLM.Provider,
		Broker:    b.Name(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, addr, server.Handler(e, a.cfg.Telemetry.ServiceName), logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		h.Close()
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
