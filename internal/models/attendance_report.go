package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AttendanceReport is a stored successful analytics run.
type AttendanceReport struct {
	ID                string          `db:"id" json:"id"`
	Label             *string         `db:"label" json:"label,omitempty"`
	Thresholds        Thresholds      `db:"thresholds" json:"thresholds"`
	SubjectCount      int             `db:"subject_count" json:"subject_count"`
	OverallPercentage string          `db:"overall_percentage" json:"overall_percentage"`
	Result            AnalyticsResult `db:"result" json:"result"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// AttendanceReportSummary is the list projection of a stored report.
type AttendanceReportSummary struct {
	ID                string    `db:"id" json:"id"`
	Label             *string   `db:"label" json:"label,omitempty"`
	SubjectCount      int       `db:"subject_count" json:"subject_count"`
	OverallPercentage string    `db:"overall_percentage" json:"overall_percentage"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// AttendanceReportFilter scopes history listing.
type AttendanceReportFilter struct {
	Label    string
	Page     int
	PageSize int
}

// Value marshals the result for JSONB persistence.
func (r AnalyticsResult) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal analytics result: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB column into the result.
func (r *AnalyticsResult) Scan(value interface{}) error {
	data, err := jsonColumn(value)
	if err != nil {
		return fmt.Errorf("scan analytics result: %w", err)
	}
	if len(data) == 0 {
		*r = AnalyticsResult{}
		return nil
	}
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("unmarshal analytics result: %w", err)
	}
	return nil
}

// Value marshals thresholds as a JSON array.
func (t Thresholds) Value() (driver.Value, error) {
	if t == nil {
		t = Thresholds{}
	}
	data, err := json.Marshal([]float64(t))
	if err != nil {
		return nil, fmt.Errorf("marshal thresholds: %w", err)
	}
	return data, nil
}

// Scan reads a JSON array of ratios.
func (t *Thresholds) Scan(value interface{}) error {
	data, err := jsonColumn(value)
	if err != nil {
		return fmt.Errorf("scan thresholds: %w", err)
	}
	if len(data) == 0 {
		*t = nil
		return nil
	}
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("unmarshal thresholds: %w", err)
	}
	*t = Thresholds(values)
	return nil
}

func jsonColumn(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}
