package repository

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tsbacktest/internal/dataset"
)

// observationRow is one stored point of a segment series. A nil Value means
// the point exists on the axis but was never observed.
type observationRow struct {
	Segment   string
	Timestamp time.Time
	Value     *decimal.Decimal
}

const getObservationsQuery = `
SELECT segment, ts, value
FROM observations
WHERE dataset = $1 AND ts >= $2 AND ts <= $3
ORDER BY segment, ts`

type pgxObservations struct {
	conn *pgxpool.Pool
}

func (r pgxObservations) GetObservations(ctx context.Context, datasetName string, start, end time.Time) ([]observationRow, error) {
	rows, err := r.conn.Query(ctx, getObservationsQuery, datasetName, start, end)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[observationRow])
}

// GetDataset loads every segment of a named dataset between start and end
// into an aligned panel. Timestamps missing for one segment but present for
// another become NaN values on the shared axis.
func (db *Database) GetDataset(name string, start, end time.Time, ctx context.Context) (*dataset.Dataset, error) {
	observations, err := db.observations.GetObservations(ctx, name, start, end)
	if err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return nil, ErrNoObservations
	}
	return buildDataset(observations)
}

func buildDataset(observations []observationRow) (*dataset.Dataset, error) {
	axisSet := make(map[time.Time]int)
	var axis []time.Time
	for _, obs := range observations {
		if _, ok := axisSet[obs.Timestamp]; !ok {
			axisSet[obs.Timestamp] = 0
			axis = append(axis, obs.Timestamp)
		}
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	for i, ts := range axis {
		axisSet[ts] = i
	}

	ds, err := dataset.New(axis)
	if err != nil {
		return nil, err
	}

	segments := make(map[string][]float64)
	for _, obs := range observations {
		values, ok := segments[obs.Segment]
		if !ok {
			values = make([]float64, len(axis))
			for i := range values {
				values[i] = math.NaN()
			}
			segments[obs.Segment] = values
		}
		if obs.Value != nil {
			values[axisSet[obs.Timestamp]] = obs.Value.InexactFloat64()
		}
	}

	names := make([]string, 0, len(segments))
	for name := range segments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ds.AddSeries(name, dataset.TargetColumn, segments[name]); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
