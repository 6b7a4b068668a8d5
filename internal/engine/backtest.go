package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"tsbacktest/internal/dataset"
	"tsbacktest/types"
)

// Global error declarations.
var (
	ErrInvalidFoldCount    = errors.New("fold count must be a positive number")
	ErrInvalidHorizon      = errors.New("horizon must be a positive number")
	ErrNoMetrics           = errors.New("at least one metric required")
	ErrInvalidMetricMode   = errors.New("all metrics must be in per-segment mode")
	ErrUnknownPolicy       = errors.New("policy not supported")
	ErrInsufficientHistory = errors.New("not enough observed history")
	ErrFoldExecution       = errors.New("fold execution failed")
)

// Backtester validates a forecasting model against historical data by
// fitting and evaluating it on a sequence of train/test folds.
type Backtester struct {
	model       Model
	metrics     []Metric
	horizon     int
	nFolds      int
	policy      types.Policy
	parallelism int
	progress    bool

	folds map[int]FoldResult
}

// BacktestTables bundles the three derived result views of one run.
type BacktestTables struct {
	Metrics   []MetricsRow
	Forecasts []ForecastRow
	FoldInfo  []FoldInfoRow
}

// NewBacktester validates the run configuration eagerly: fold count, horizon,
// policy and metric modes are all rejected here, before any data is touched.
func NewBacktester(model Model, metrics []Metric, cfg *RunConfig) (*Backtester, error) {
	if cfg.nFolds < 1 {
		return nil, fmt.Errorf("%w: %d given", ErrInvalidFoldCount, cfg.nFolds)
	}
	if cfg.horizon < 1 {
		return nil, fmt.Errorf("%w: %d given", ErrInvalidHorizon, cfg.horizon)
	}
	if _, ok := types.ConvertPolicy[string(cfg.policy)]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, cfg.policy)
	}
	if len(metrics) == 0 {
		return nil, ErrNoMetrics
	}
	for _, metric := range metrics {
		if metric.Mode() != MetricModePerSegment {
			return nil, fmt.Errorf("%w: %s metric is in %s mode", ErrInvalidMetricMode, metric.Name(), metric.Mode())
		}
	}
	return &Backtester{
		model:       model,
		metrics:     metrics,
		horizon:     cfg.horizon,
		nFolds:      cfg.nFolds,
		policy:      cfg.policy,
		parallelism: cfg.parallelism,
		progress:    cfg.progress,
		folds:       make(map[int]FoldResult),
	}, nil
}

// Backtest runs every fold against ds and returns the three result tables.
// A failure in any fold aborts the whole run: in-flight folds are cancelled,
// no partial results are stored and no tables are returned. Results of a
// previous successful run on the same instance are overwritten on success.
func (b *Backtester) Backtest(ctx context.Context, ds *dataset.Dataset, transforms []Transform) (*BacktestTables, error) {
	if err := b.validateHistory(ds); err != nil {
		return nil, err
	}
	specs, err := PlanFolds(ds.Len(), b.nFolds, b.horizon, b.policy)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("folds", b.nFolds).
		Int("horizon", b.horizon).
		Str("policy", string(b.policy)).
		Int("parallelism", b.parallelism).
		Int("segments", len(ds.Segments())).
		Msg("starting backtest")

	results, err := b.dispatch(ctx, ds, transforms, specs)
	if err != nil {
		return nil, err
	}

	folds := make(map[int]FoldResult, len(results))
	for _, result := range results {
		folds[result.FoldNumber] = result
	}
	b.folds = folds

	log.Info().Int("folds", len(folds)).Msg("backtest complete")

	return &BacktestTables{
		Metrics:   b.GetMetrics(false),
		Forecasts: b.GetForecasts(),
		FoldInfo:  b.GetFoldInfo(),
	}, nil
}

// validateHistory checks that the last horizon*folds points of every
// segment's target series are fully observed.
func (b *Backtester) validateHistory(ds *dataset.Dataset) error {
	minRequired := b.horizon * b.nFolds
	if ds.Len() < minRequired {
		return fmt.Errorf("%w: axis has %d points, %d required", ErrInsufficientHistory, ds.Len(), minRequired)
	}
	for _, segment := range ds.Segments() {
		target, err := ds.Series(segment, dataset.TargetColumn)
		if err != nil {
			return err
		}
		for _, value := range target[len(target)-minRequired:] {
			if math.IsNaN(value) {
				return fmt.Errorf("%w: segment %q must have at least %d observed trailing points",
					ErrInsufficientHistory, segment, minRequired)
			}
		}
	}
	return nil
}

// dispatch runs the folds with bounded parallelism. Each fold writes into its
// own result slot, so no lock is needed; the first failing fold cancels the
// rest and its error is surfaced.
func (b *Backtester) dispatch(ctx context.Context, ds *dataset.Dataset, transforms []Transform, specs []FoldSpec) ([]FoldResult, error) {
	results := make([]FoldResult, len(specs))
	errs := make([]error, len(specs))

	var bar *progressbar.ProgressBar
	if b.progress {
		bar = initProgressBar(len(specs))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	semaphore := make(chan struct{}, b.parallelism)
	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Add(1)
		go func(spec FoldSpec) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-runCtx.Done():
				errs[spec.FoldNumber] = runCtx.Err()
				return
			}
			defer func() { <-semaphore }()

			result, err := b.runFoldSpec(ds, transforms, spec)
			if err != nil {
				errs[spec.FoldNumber] = err
				cancel()
				return
			}
			results[spec.FoldNumber] = result

			if bar != nil {
				_ = bar.Add(1)
			}
			log.Debug().
				Int("fold", spec.FoldNumber).
				Time("test_start", result.TestStart).
				Time("test_end", result.TestEnd).
				Msg("fold complete")
		}(spec)
	}
	wg.Wait()

	// Surface the lowest-numbered real failure so the reported error does
	// not depend on completion order.
	for i, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: fold %d: %w", ErrFoldExecution, i, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// runFoldSpec materializes the train/test views for one fold and runs it.
func (b *Backtester) runFoldSpec(ds *dataset.Dataset, transforms []Transform, spec FoldSpec) (FoldResult, error) {
	axis := ds.Axis()
	train, test, err := ds.TrainTestSplit(
		axis[spec.TrainStart], axis[spec.TrainEnd],
		axis[spec.TestStart], axis[spec.TestEnd],
	)
	if err != nil {
		return FoldResult{}, err
	}
	return b.runFold(train, test, transforms, spec.FoldNumber)
}

func initProgressBar(folds int) *progressbar.ProgressBar {
	return progressbar.NewOptions(folds,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting folds..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
