// Package export renders analytics results as flat tables.
package export

import (
	"bytes"
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/attendance-analyzer/internal/models"
)

// ProjectionRow is one subject/threshold pair of a tidy export.
type ProjectionRow struct {
	Subject    string `csv:"subject"`
	Total      int    `csv:"total"`
	Attended   int    `csv:"attended"`
	Percentage string `csv:"percentage"`
	Threshold  string `csv:"threshold"`
	Needed     int    `csv:"needed"`
	CanMiss    int    `csv:"can_miss"`
}

// CSVExporter renders analytics results into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces one row per subject and threshold, subjects in input order
// followed by the overall rows.
func (e *CSVExporter) Render(result models.AnalyticsResult) ([]byte, error) {
	if !result.Succeeded() {
		return nil, fmt.Errorf("cannot export a failed result: %s", result.Message)
	}
	buf := &bytes.Buffer{}
	if err := gocsv.Marshal(Rows(result), buf); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Rows flattens a result into projection rows.
func Rows(result models.AnalyticsResult) []*ProjectionRow {
	reports := append([]models.SubjectReport{}, result.Subjects...)
	if result.Overall != nil {
		reports = append(reports, *result.Overall)
	}

	rows := []*ProjectionRow{}
	for _, report := range reports {
		for _, p := range report.Projections {
			rows = append(rows, &ProjectionRow{
				Subject:    report.Subject,
				Total:      report.Total,
				Attended:   report.Attended,
				Percentage: report.Percentage,
				Threshold:  models.ThresholdLabel(p.Threshold),
				Needed:     p.Needed,
				CanMiss:    p.CanMiss,
			})
		}
	}
	return rows
}
