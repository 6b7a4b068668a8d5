package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"
)

// WriteForecastsCSVFile writes forecast rows to a CSV file at the given path.
func WriteForecastsCSVFile(path string, rows []ForecastRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create forecasts file: %w", err)
	}
	defer f.Close()

	return WriteForecastsCSV(f, rows)
}

// WriteForecastsCSV writes forecast rows to any io.Writer as CSV.
func WriteForecastsCSV(w io.Writer, rows []ForecastRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "segment", "target", "fold_number"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Timestamp.Format(time.RFC3339),
			row.Segment,
			strconv.FormatFloat(row.Target, 'g', -1, 64),
			strconv.Itoa(row.FoldNumber),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteMetricsCSVFile writes metric rows to a CSV file at the given path.
func WriteMetricsCSVFile(path string, rows []MetricsRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer f.Close()

	return WriteMetricsCSV(f, rows)
}

// WriteMetricsCSV writes metric rows as CSV with one column per metric name.
// Aggregated rows (FoldNumber == AggregatedFold) drop the fold column.
func WriteMetricsCSV(w io.Writer, rows []MetricsRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	metricNames := metricColumns(rows)
	aggregated := len(rows) > 0 && rows[0].FoldNumber == AggregatedFold

	header := []string{"segment"}
	if !aggregated {
		header = append(header, "fold_number")
	}
	header = append(header, metricNames...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := []string{row.Segment}
		if !aggregated {
			record = append(record, strconv.Itoa(row.FoldNumber))
		}
		for _, name := range metricNames {
			record = append(record, strconv.FormatFloat(row.Scores[name], 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteFoldInfoCSVFile writes fold info rows to a CSV file at the given path.
func WriteFoldInfoCSVFile(path string, rows []FoldInfoRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fold info file: %w", err)
	}
	defer f.Close()

	return WriteFoldInfoCSV(f, rows)
}

// WriteFoldInfoCSV writes fold timerange rows to any io.Writer as CSV.
func WriteFoldInfoCSV(w io.Writer, rows []FoldInfoRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"fold_number", "train_start_time", "train_end_time", "test_start_time", "test_end_time"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.FoldNumber),
			row.TrainStart.Format(time.RFC3339),
			row.TrainEnd.Format(time.RFC3339),
			row.TestStart.Format(time.RFC3339),
			row.TestEnd.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func metricColumns(rows []MetricsRow) []string {
	seen := make(map[string]bool)
	var names []string
	for _, row := range rows {
		for name := range row.Scores {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
