package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hed1ad/goflowprep/pkg/config"
	"github.com/hed1ad/goflowprep/pkg/dataset"
	"github.com/hed1ad/goflowprep/pkg/features"
	csvio "github.com/hed1ad/goflowprep/pkg/io/csv"
	"github.com/hed1ad/goflowprep/pkg/transform"
)

type featuresOptions struct {
	trainPath string
	inputPath string
	output    string
	chainPath string
	raw       bool
}

func newFeaturesCmd(root *rootOptions) *cobra.Command {
	opts := &featuresOptions{}

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Build a model-ready feature matrix from flow CSVs",
		Long: `Features fits the transform chain on a training partition, applies it to
an input partition and writes the resulting feature matrix as CSV.

With --raw the chain is skipped and the assembled per-flow features are
written untransformed. With --save-chain the fitted chain parameters are
persisted for later reuse.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeatures(root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.trainPath, "train", "", "training partition CSV (required unless --raw)")
	cmd.Flags().StringVarP(&opts.inputPath, "input", "i", "", "input partition CSV to transform (required)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "features.csv", "output CSV path")
	cmd.Flags().StringVar(&opts.chainPath, "save-chain", "", "persist the fitted chain parameters to this file")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "write assembled features without the transform chain")
	cobra.CheckErr(cmd.MarkFlagRequired("input"))

	return cmd
}

func runFeatures(root *rootOptions, opts *featuresOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	extractors, err := buildExtractors(cfg)
	if err != nil {
		return err
	}

	input, err := dataset.Load(opts.inputPath)
	if err != nil {
		return err
	}
	logger.WithField("flows", len(input)).Info("loaded input partition")

	chain := transform.Default(cfg.Pipeline.VarianceRetention, cfg.Pipeline.TopK)
	pipeline := features.NewPipeline(chain, extractors...)

	if opts.raw {
		table, err := pipeline.CreateFeatures(input)
		if err != nil {
			return err
		}
		return writeTable(opts.output, table, logger)
	}

	if opts.trainPath == "" {
		return fmt.Errorf("--train is required unless --raw is set")
	}

	split, err := dataset.LoadSplit(opts.trainPath, opts.inputPath, cfg.Pipeline.ShuffleSeed)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"train": len(split.Train),
		"eval":  len(split.Eval),
	}).Info("loaded partitions")

	if err := pipeline.Fit(split.Train); err != nil {
		return err
	}

	if opts.chainPath != "" {
		data, err := chain.Save()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.chainPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to save chain: %w", err)
		}
		logger.WithField("path", opts.chainPath).Info("saved fitted chain")
	}

	table, err := pipeline.Transform(split.Eval)
	if err != nil {
		return err
	}
	return writeTable(opts.output, table, logger)
}

// buildExtractors assembles the extractor set from the pipeline config.
// Burst-rate and inter-arrival features are opt-in since they need
// per-packet timestamps most flow CSVs do not carry.
func buildExtractors(cfg *config.Config) ([]features.Extractor, error) {
	timeOpts := []features.TimeOption{}
	if cfg.Pipeline.BurstWindowSeconds > 0 {
		timeOpts = append(timeOpts,
			features.WithBurstRate(cfg.Pipeline.BurstWindowSeconds, cfg.Pipeline.BurstStrideSeconds))
	}

	te, err := features.NewTimeExtractor(timeOpts...)
	if err != nil {
		return nil, err
	}
	return []features.Extractor{
		te,
		features.NewStatisticalExtractor(),
		features.NewProtocolExtractor(),
	}, nil
}

func writeTable(path string, table *features.Table, logger *logrus.Logger) error {
	if err := csvio.WriteTable(path, table); err != nil {
		return err
	}
	logger.Infof("wrote %d rows x %d features to %s", table.Len(), table.NumFeatures(), path)
	return nil
}
