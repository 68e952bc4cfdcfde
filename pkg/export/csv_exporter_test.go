package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-analyzer/internal/models"
)

func sampleResult() models.AnalyticsResult {
	overall := models.SubjectReport{
		Subject: models.OverallSubject, Total: 12, Attended: 9, Percentage: "75.00",
		Projections: []models.ThresholdProjection{{Threshold: 0.75, Needed: 0, CanMiss: 0}},
	}
	return models.AnalyticsResult{
		Status: models.ResultStatusSuccess,
		Subjects: []models.SubjectReport{
			{Subject: "Maths", Total: 12, Attended: 9, Percentage: "75.00",
				Projections: []models.ThresholdProjection{{Threshold: 0.75, Needed: 0, CanMiss: 0}}},
		},
		Overall: &overall,
	}
}

func TestCSVExporterRender(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleResult())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "subject,total,attended,percentage,threshold,needed,can_miss", lines[0])
	assert.Equal(t, "Maths,12,9,75.00,75,0,0", lines[1])
	assert.Equal(t, "OVERALL,12,9,75.00,75,0,0", lines[2])
}

func TestCSVExporterRejectsFailure(t *testing.T) {
	_, err := NewCSVExporter().Render(models.NewFailureResult(models.FailureNoData, "no table", nil))
	assert.Error(t, err)
}

func TestRowsWithoutOverall(t *testing.T) {
	result := sampleResult()
	result.Overall = nil
	rows := Rows(result)
	require.Len(t, rows, 1)
	assert.Equal(t, "Maths", rows[0].Subject)
}
