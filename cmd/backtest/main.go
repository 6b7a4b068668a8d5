package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tsbacktest/internal/changepoint"
	"tsbacktest/internal/dataset"
	"tsbacktest/internal/engine"
	"tsbacktest/internal/metrics"
	"tsbacktest/internal/model"
	"tsbacktest/internal/repository"
	"tsbacktest/internal/transform"
	"tsbacktest/types"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var configPath string

	rootCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Validate forecasting models against historical time series",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a cross-validation backtest and write the result tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	runCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the run configuration")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}
}

func run(ctx context.Context, cfg *runConfig) error {
	db, err := repository.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ds, err := db.GetDataset(cfg.Dataset, cfg.Start, cfg.End, ctx)
	if err != nil {
		return err
	}
	log.Info().
		Str("dataset", cfg.Dataset).
		Int("points", ds.Len()).
		Int("segments", len(ds.Segments())).
		Msg("dataset loaded")

	var forecaster engine.Model
	switch cfg.Model {
	case "linear":
		forecaster = model.NewLinearPerSegment()
	default:
		forecaster = model.NewNaive()
	}

	var transforms []engine.Transform
	if cfg.Detrend {
		transforms = append(transforms, transform.NewTrendTransform(
			dataset.TargetColumn,
			changepoint.NewBinseg(cfg.ChangePoints),
		))
	}

	backtester, err := engine.NewBacktester(
		forecaster,
		[]engine.Metric{
			metrics.NewMAE(engine.MetricModePerSegment),
			metrics.NewMSE(engine.MetricModePerSegment),
			metrics.NewMAPE(engine.MetricModePerSegment),
		},
		engine.NewRunConfig(cfg.Horizon, cfg.Folds, types.ConvertPolicy[cfg.Policy], cfg.Parallelism, cfg.Progress),
	)
	if err != nil {
		return err
	}

	tables, err := backtester.Backtest(ctx, ds, transforms)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	if err := engine.WriteForecastsCSVFile(filepath.Join(cfg.OutputDir, "forecasts.csv"), tables.Forecasts); err != nil {
		return err
	}
	if err := engine.WriteMetricsCSVFile(filepath.Join(cfg.OutputDir, "metrics.csv"), tables.Metrics); err != nil {
		return err
	}
	if err := engine.WriteMetricsCSVFile(filepath.Join(cfg.OutputDir, "metrics_aggregated.csv"), backtester.GetMetrics(true)); err != nil {
		return err
	}
	if err := engine.WriteFoldInfoCSVFile(filepath.Join(cfg.OutputDir, "fold_info.csv"), tables.FoldInfo); err != nil {
		return err
	}

	log.Info().Str("output_dir", cfg.OutputDir).Msg("result tables written")
	return nil
}
