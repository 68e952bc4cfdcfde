package service

import (
	"fmt"
	"strconv"

	"github.com/noah-isme/attendance-analyzer/internal/models"
)

const (
	// MessageNoData is shown when the portal returned no attendance table. At this
	// layer an empty table cannot be told apart from a failed login upstream.
	MessageNoData = "Attendance table not found. Please check your credentials."

	messageFailurePrefix = "An error occurred: "
)

// Aggregate groups raw portal rows into subjects and computes percentage and
// threshold projections per subject and overall. It is pure and safe for
// concurrent use; every failure is returned as an error-tagged result.
func Aggregate(rows []models.RawAttendanceRow, thresholds models.Thresholds) (result models.AnalyticsResult) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("aggregate attendance: %v", rec)
			result = models.NewFailureResult(models.FailureInternal, messageFailurePrefix+err.Error(), err)
		}
	}()

	if len(rows) == 0 {
		return models.NewFailureResult(models.FailureNoData, MessageNoData, nil)
	}
	if len(thresholds) == 0 {
		err := fmt.Errorf("no attendance thresholds configured")
		return models.NewFailureResult(models.FailureInternal, messageFailurePrefix+err.Error(), err)
	}

	order := make([]string, 0, len(rows))
	buckets := make(map[string]*models.SubjectAggregate, len(rows))
	var grand models.SubjectAggregate

	for i, row := range rows {
		total, attended, err := parseCounts(row)
		if err != nil {
			wrapped := fmt.Errorf("row %d (%q): %w", i+1, row.SubjectName, err)
			return models.NewFailureResult(models.FailureInvalidRowData,
				messageFailurePrefix+"invalid attendance data in row "+strconv.Itoa(i+1), wrapped)
		}
		key := row.SubjectKey()
		bucket, ok := buckets[key]
		if !ok {
			bucket = &models.SubjectAggregate{}
			buckets[key] = bucket
			order = append(order, key)
		}
		bucket.Add(total, attended)
		grand.Add(total, attended)
	}

	subjects := make([]models.SubjectReport, 0, len(order))
	for _, key := range order {
		subjects = append(subjects, buildReport(key, *buckets[key], thresholds))
	}
	overall := buildReport(models.OverallSubject, grand, thresholds)

	return models.AnalyticsResult{
		Status:   models.ResultStatusSuccess,
		Subjects: subjects,
		Overall:  &overall,
	}
}

func parseCounts(row models.RawAttendanceRow) (total, attended int, err error) {
	if total, err = row.TotalClasses.Int(); err != nil {
		return 0, 0, fmt.Errorf("total_classes: %w", err)
	}
	if attended, err = row.AttendedClasses.Int(); err != nil {
		return 0, 0, fmt.Errorf("attended_classes: %w", err)
	}
	return total, attended, nil
}

func buildReport(subject string, agg models.SubjectAggregate, thresholds models.Thresholds) models.SubjectReport {
	report := models.SubjectReport{
		Subject:     subject,
		Total:       agg.Total,
		Attended:    agg.Attended,
		Percentage:  formatPercentage(agg.Attended, agg.Total),
		Projections: make([]models.ThresholdProjection, 0, len(thresholds)),
	}
	for _, r := range thresholds {
		report.Projections = append(report.Projections, models.ThresholdProjection{
			Threshold: r,
			Needed:    neededClasses(agg.Attended, agg.Total, r),
			CanMiss:   missableClasses(agg.Attended, agg.Total, r),
		})
	}
	return report
}

func formatPercentage(attended, total int) string {
	if total <= 0 {
		return "0.00"
	}
	pct := float64(attended) / float64(total) * 100
	return strconv.FormatFloat(pct, 'f', 2, 64)
}

// neededClasses returns trunc(raw+1) for raw = (r*total - attended)/(1-r). When
// raw lands exactly on an integer this is one more than the true minimum; the
// portal's published figures have always used this rule.
func neededClasses(attended, total int, r float64) int {
	if total <= 0 {
		return 0
	}
	a, t := float64(attended), float64(total)
	if a/t >= r {
		return 0
	}
	// The explicit conversion keeps r*t from being fused into a multiply-add.
	raw := (float64(r*t) - a) / (1 - r)
	return max(0, int(raw+1))
}

// missableClasses returns trunc(attended/r) - total, floored at zero.
func missableClasses(attended, total int, r float64) int {
	if total <= 0 {
		return 0
	}
	return max(0, int(float64(attended)/r)-total)
}
