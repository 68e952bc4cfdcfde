package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-analyzer/internal/dto"
	"github.com/noah-isme/attendance-analyzer/internal/models"
	"github.com/noah-isme/attendance-analyzer/internal/service"
	appErrors "github.com/noah-isme/attendance-analyzer/pkg/errors"
)

type attendanceServiceMock struct {
	lastAnalyze dto.AnalyzeRequest
	analyzeResp *dto.AnalyzeResponse
	analyzeErr  error
	report      *models.AttendanceReport
	cacheHit    bool
	reportErr   error
	summaries   []models.AttendanceReportSummary
	pagination  *models.Pagination
	lastList    dto.ReportListRequest
	deleteErr   error
}

func (m *attendanceServiceMock) Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	m.lastAnalyze = req
	return m.analyzeResp, m.analyzeErr
}

func (m *attendanceServiceMock) Report(ctx context.Context, id string) (*models.AttendanceReport, bool, error) {
	return m.report, m.cacheHit, m.reportErr
}

func (m *attendanceServiceMock) ListReports(ctx context.Context, req dto.ReportListRequest) ([]models.AttendanceReportSummary, *models.Pagination, error) {
	m.lastList = req
	return m.summaries, m.pagination, nil
}

func (m *attendanceServiceMock) DeleteReport(ctx context.Context, id string) error {
	return m.deleteErr
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func realAttendanceHandler() *AttendanceHandler {
	return NewAttendanceHandler(service.NewAttendanceService(nil, nil, nil, nil, nil, service.AttendanceServiceConfig{}))
}

func TestAttendanceHandlerAnalyze(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := realAttendanceHandler()

	body := []byte(`{"rows":[{"subject_name":"Math-A","total_classes":10,"attended_classes":"9"},{"subject_name":"Math-B","total_classes":"10","attended_classes":8}]}`)
	c, w := newGinContext(http.MethodPost, "/attendance/analyze", body)

	handler.Analyze(c)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.Nil(t, env.Error)
	assert.JSONEq(t, `{
		"status": "success",
		"subjects": [{"subject":"Math","total":20,"attended":17,"percentage":"85.00","needed_60":0,"needed_75":0,"can_miss_60":8,"can_miss_75":2}],
		"overall": {"subject":"OVERALL","total":20,"attended":17,"percentage":"85.00","needed_60":0,"needed_75":0,"can_miss_60":8,"can_miss_75":2}
	}`, string(env.Data))
}

func TestAttendanceHandlerAnalyzeNoData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := realAttendanceHandler()

	c, w := newGinContext(http.MethodPost, "/attendance/analyze", []byte(`{"rows":[]}`))
	handler.Analyze(c)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NO_DATA", env.Error.Code)
	assert.JSONEq(t, `{"status":"error","message":"Attendance table not found. Please check your credentials."}`, string(env.Data))
}

func TestAttendanceHandlerAnalyzeInvalidRow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := realAttendanceHandler()

	c, w := newGinContext(http.MethodPost, "/attendance/analyze", []byte(`{"rows":[{"subject_name":"Bio","total_classes":"abc","attended_classes":"3"}]}`))
	handler.Analyze(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_ROW_DATA", env.Error.Code)
	assert.Equal(t, "An error occurred: invalid attendance data in row 1", env.Error.Message)
	assert.JSONEq(t, `{"status":"error","message":"An error occurred: invalid attendance data in row 1"}`, string(env.Data))
}

func TestAttendanceHandlerAnalyzeBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{})

	c, w := newGinContext(http.MethodPost, "/attendance/analyze", []byte(`{"rows":{}`))
	handler.Analyze(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, w).Error.Code)
}

func TestAttendanceHandlerAnalyzeReportsID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{analyzeResp: &dto.AnalyzeResponse{
		ReportID: "3f1f8f8e-2a6f-4d8e-9c1a-1b2c3d4e5f60",
		Result:   models.AnalyticsResult{Status: models.ResultStatusSuccess},
	}}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/attendance/analyze", []byte(`{"rows":[],"save":true,"label":"week-9"}`))
	handler.Analyze(c)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.Equal(t, "3f1f8f8e-2a6f-4d8e-9c1a-1b2c3d4e5f60", env.Meta["report_id"])
	assert.True(t, mockSvc.lastAnalyze.Save)
	assert.Equal(t, "week-9", mockSvc.lastAnalyze.Label)
}

func TestAttendanceHandlerAnalyzeServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{analyzeErr: appErrors.ErrHistoryBusy})

	c, w := newGinContext(http.MethodPost, "/attendance/analyze", []byte(`{"rows":[]}`))
	handler.Analyze(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAttendanceHandlerAnalyzeCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{analyzeResp: &dto.AnalyzeResponse{Result: models.AnalyticsResult{Status: models.ResultStatusSuccess}}}
	handler := NewAttendanceHandler(mockSvc)

	csv := []byte("subject_name,total_classes,attended_classes\nMath-A,10,9\nPhy,20,10\n")
	c, w := newGinContext(http.MethodPost, "/attendance/analyze/csv?thresholds=0.75,0.6&label=week-9&save=true", csv)
	c.Request.Header.Set("Content-Type", "text/csv")

	handler.AnalyzeCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mockSvc.lastAnalyze.Rows, 2)
	assert.Equal(t, "Math-A", mockSvc.lastAnalyze.Rows[0].SubjectName)
	assert.Equal(t, []float64{0.6, 0.75}, mockSvc.lastAnalyze.Thresholds)
	assert.Equal(t, "week-9", mockSvc.lastAnalyze.Label)
	assert.True(t, mockSvc.lastAnalyze.Save)
}

func TestAttendanceHandlerAnalyzeCSVMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{analyzeResp: &dto.AnalyzeResponse{Result: models.AnalyticsResult{Status: models.ResultStatusSuccess}}}
	handler := NewAttendanceHandler(mockSvc)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "attendance.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("subject_name,total_classes,attended_classes\nChem,12,10\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	c, w := newGinContext(http.MethodPost, "/attendance/analyze/csv", buf.Bytes())
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	handler.AnalyzeCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mockSvc.lastAnalyze.Rows, 1)
	assert.Equal(t, models.ClassCount("12"), mockSvc.lastAnalyze.Rows[0].TotalClasses)
}

func TestAttendanceHandlerAnalyzeCSVRejectsBadInput(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{})

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "bad thresholds", path: "/attendance/analyze/csv?thresholds=0.6,abc", body: "subject_name,total_classes,attended_classes\n"},
		{name: "threshold out of range", path: "/attendance/analyze/csv?thresholds=1.2", body: "subject_name,total_classes,attended_classes\n"},
		{name: "bad save flag", path: "/attendance/analyze/csv?save=maybe", body: "subject_name,total_classes,attended_classes\n"},
		{name: "malformed csv", path: "/attendance/analyze/csv", body: "subject_name,total_classes,attended_classes\n\"Math,10,9\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newGinContext(http.MethodPost, tt.path, []byte(tt.body))
			c.Request.Header.Set("Content-Type", "text/csv")
			handler.AnalyzeCSV(c)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAttendanceHandlerGetReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{report: &models.AttendanceReport{ID: "r-1", OverallPercentage: "85.00"}, cacheHit: true}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/attendance/reports/r-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	handler.GetReport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeEnvelope(t, w).Meta["cache_hit"])
}

func TestAttendanceHandlerGetReportNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{reportErr: appErrors.Clone(appErrors.ErrNotFound, "attendance report not found")})

	c, w := newGinContext(http.MethodGet, "/attendance/reports/r-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	handler.GetReport(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceHandlerListReports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &attendanceServiceMock{
		summaries:  []models.AttendanceReportSummary{{ID: "r-1"}},
		pagination: &models.Pagination{Page: 2, PageSize: 5, TotalCount: 6},
	}
	handler := NewAttendanceHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/attendance/reports?page=2&page_size=5&label=week-9", nil)
	handler.ListReports(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ReportListRequest{Label: "week-9", Page: 2, PageSize: 5}, mockSvc.lastList)
	assert.Equal(t, 6, decodeEnvelope(t, w).Pagination.TotalCount)

	c, w = newGinContext(http.MethodGet, "/attendance/reports?page=two", nil)
	handler.ListReports(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendanceHandlerDeleteReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttendanceHandler(&attendanceServiceMock{})

	c, w := newGinContext(http.MethodDelete, "/attendance/reports/r-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	handler.DeleteReport(c)
	require.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Empty(t, w.Body.String())

	handler = NewAttendanceHandler(&attendanceServiceMock{deleteErr: appErrors.ErrHistoryDisabled})
	c, w = newGinContext(http.MethodDelete, "/attendance/reports/r-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	handler.DeleteReport(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceHandlerExportReport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	result := service.Aggregate([]models.RawAttendanceRow{
		{SubjectName: "Maths-L", TotalClasses: "10", AttendedClasses: "8"},
	}, models.Thresholds{0.75})
	handler := NewAttendanceHandler(&attendanceServiceMock{report: &models.AttendanceReport{ID: "r-1", Result: result}})

	c, w := newGinContext(http.MethodGet, "/attendance/reports/r-1/export", nil)
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	handler.ExportReport(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance-r-1.csv")
	assert.Contains(t, w.Body.String(), "Maths,10,8,80.00,75,0,0")

	handler = NewAttendanceHandler(&attendanceServiceMock{reportErr: appErrors.ErrHistoryDisabled})
	c, w = newGinContext(http.MethodGet, "/attendance/reports/r-1/export", nil)
	c.Params = gin.Params{{Key: "id", Value: "r-1"}}
	handler.ExportReport(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
