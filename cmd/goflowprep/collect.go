package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hed1ad/goflowprep/pkg/collector"
)

type collectOptions struct {
	typ         string
	duration    time.Duration
	out         string
	pcapFile    string
	metricsAddr string
}

func newCollectCmd(root *rootOptions) *cobra.Command {
	opts := &collectOptions{}

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect flow records and save them as CSV",
		Long: `Collect acquires one batch of flow records from the configured source
and writes it to {out}/{type}_data.csv.

Synthetic traffic is generated locally. Normal and attack traffic come
from live capture on the configured interface, or from a pcap file when
--pcap is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.typ, "type", "t", "synthetic", "traffic type: normal, attack or synthetic")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 30*time.Second, "how long to collect")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory (overrides config save_path)")
	cmd.Flags().StringVar(&opts.pcapFile, "pcap", "", "read packets from a pcap file instead of a live interface")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9590)")

	return cmd
}

func runCollect(ctx context.Context, root *rootOptions, opts *collectOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	typ, err := collector.ParseType(opts.typ)
	if err != nil {
		return err
	}

	savePath := cfg.Collector.SavePath
	if opts.out != "" {
		savePath = opts.out
	}
	if err := os.MkdirAll(savePath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	collectorOpts := []collector.Option{
		collector.WithLogger(logger),
		collector.WithSyntheticSource(collector.NewSyntheticSource(
			collector.WithSeed(cfg.Collector.SyntheticSeed),
			collector.WithFlowRate(cfg.Collector.SyntheticRate),
			collector.WithAttackRatio(cfg.Collector.AttackRatio),
		)),
	}

	switch {
	case opts.pcapFile != "":
		src := collector.NewFileCaptureSource(opts.pcapFile, collector.WithLabel(typ.String()))
		collectorOpts = append(collectorOpts,
			collector.WithNormalSource(src),
			collector.WithAttackSource(src),
		)
	case cfg.Collector.Interface != "":
		collectorOpts = append(collectorOpts,
			collector.WithNormalSource(collector.NewLiveCaptureSource(cfg.Collector.Interface, collector.WithLabel("normal"))),
			collector.WithAttackSource(collector.NewLiveCaptureSource(cfg.Collector.Interface, collector.WithLabel("attack"))),
		)
	}

	if !cfg.Collector.MetricsDisabled {
		reg := prometheus.NewRegistry()
		collectorOpts = append(collectorOpts, collector.WithMetrics(collector.NewMetrics(reg)))

		if opts.metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			go func() {
				if err := http.ListenAndServe(opts.metricsAddr, mux); err != nil {
					logger.WithError(err).Error("metrics server stopped")
				}
			}()
			logger.WithField("addr", opts.metricsAddr).Info("serving metrics")
		}
	}

	c := collector.New(savePath, collectorOpts...)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batch, err := c.Collect(ctx, typ, opts.duration)
	if err != nil {
		return err
	}

	fmt.Printf("collected %d flows into %s\n", len(batch), savePath)
	return nil
}
