// Package importer turns uploaded attendance tables into raw rows for the aggregator.
package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/attendance-analyzer/internal/models"
)

// ErrMalformedInput is returned when the payload itself cannot be decoded.
var ErrMalformedInput = errors.New("malformed attendance table")

// ParseJSON decodes a JSON array of rows.
func ParseJSON(r io.Reader) ([]models.RawAttendanceRow, error) {
	var rows []models.RawAttendanceRow
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rows); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return rows, nil
}

// ParseCSV decodes a table with subject_name, total_classes and attended_classes
// headers. Counts are kept as text so the aggregator decides whether they parse.
func ParseCSV(r io.Reader) ([]models.RawAttendanceRow, error) {
	var records []*models.RawAttendanceRow
	if err := gocsv.Unmarshal(r, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	rows := make([]models.RawAttendanceRow, 0, len(records))
	for _, rec := range records {
		if rec == nil || isBlank(*rec) {
			continue
		}
		rows = append(rows, *rec)
	}
	return rows, nil
}

func isBlank(row models.RawAttendanceRow) bool {
	return strings.TrimSpace(row.SubjectName) == "" &&
		strings.TrimSpace(string(row.TotalClasses)) == "" &&
		strings.TrimSpace(string(row.AttendedClasses)) == ""
}
