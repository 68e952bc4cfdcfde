package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-analyzer/internal/dto"
	"github.com/noah-isme/attendance-analyzer/internal/importer"
	"github.com/noah-isme/attendance-analyzer/internal/middleware"
	"github.com/noah-isme/attendance-analyzer/internal/models"
	appErrors "github.com/noah-isme/attendance-analyzer/pkg/errors"
	"github.com/noah-isme/attendance-analyzer/pkg/export"
	"github.com/noah-isme/attendance-analyzer/pkg/response"
)

const maxUploadBytes = 1 << 20

type attendanceService interface {
	Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.AnalyzeResponse, error)
	Report(ctx context.Context, id string) (*models.AttendanceReport, bool, error)
	ListReports(ctx context.Context, req dto.ReportListRequest) ([]models.AttendanceReportSummary, *models.Pagination, error)
	DeleteReport(ctx context.Context, id string) error
}

// AttendanceHandler exposes attendance analytics and report history.
type AttendanceHandler struct {
	service  attendanceService
	exporter *export.CSVExporter
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service, exporter: export.NewCSVExporter()}
}

// Analyze godoc
// @Summary Analyze attendance rows
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.AnalyzeRequest true "Raw attendance rows"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance/analyze [post]
func (h *AttendanceHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid analyze payload"))
		return
	}
	h.analyze(c, req)
}

// AnalyzeCSV godoc
// @Summary Analyze an attendance CSV export
// @Tags Attendance
// @Accept text/csv
// @Accept multipart/form-data
// @Produce json
// @Param file formData file false "CSV file with subject_name,total_classes,attended_classes"
// @Param thresholds query string false "Comma separated ratios, e.g. 0.6,0.75"
// @Param label query string false "Report label"
// @Param save query bool false "Store the report in history"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance/analyze/csv [post]
func (h *AttendanceHandler) AnalyzeCSV(c *gin.Context) {
	req := dto.AnalyzeRequest{Label: strings.TrimSpace(c.Query("label"))}

	if raw := strings.TrimSpace(c.Query("thresholds")); raw != "" {
		thresholds, err := models.ParseThresholds(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error()))
			return
		}
		req.Thresholds = thresholds
	}
	if raw := c.Query("save"); raw != "" {
		save, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "save must be a boolean"))
			return
		}
		req.Save = save
	}

	body, err := h.csvBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	rows, err := importer.ParseCSV(body)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance CSV"))
		return
	}
	req.Rows = rows
	h.analyze(c, req)
}

// ListReports godoc
// @Summary List stored attendance reports
// @Tags Attendance
// @Produce json
// @Param label query string false "Filter by label"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /attendance/reports [get]
func (h *AttendanceHandler) ListReports(c *gin.Context) {
	var req dto.ReportListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	reports, pagination, err := h.service.ListReports(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, pagination, middleware.ExtractMeta(c))
}

// GetReport godoc
// @Summary Get a stored attendance report
// @Tags Attendance
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/reports/{id} [get]
func (h *AttendanceHandler) GetReport(c *gin.Context) {
	report, cacheHit, err := h.service.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// ExportReport godoc
// @Summary Download a stored attendance report as CSV
// @Tags Attendance
// @Produce text/csv
// @Param id path string true "Report ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /attendance/reports/{id}/export [get]
func (h *AttendanceHandler) ExportReport(c *gin.Context) {
	id := c.Param("id")
	report, _, err := h.service.Report(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.exporter.Render(report.Result)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export attendance report"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.csv"`, id))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// DeleteReport godoc
// @Summary Delete a stored attendance report
// @Tags Attendance
// @Param id path string true "Report ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /attendance/reports/{id} [delete]
func (h *AttendanceHandler) DeleteReport(c *gin.Context) {
	if err := h.service.DeleteReport(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *AttendanceHandler) analyze(c *gin.Context, req dto.AnalyzeRequest) {
	resp, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if resp.ReportID != "" {
		middleware.SetMeta(c, "report_id", resp.ReportID)
	}
	meta := middleware.ExtractMeta(c)

	if failure := resultError(resp.Result); failure != nil {
		response.Failure(c, resp.Result, failure, meta)
		return
	}
	response.JSON(c, http.StatusOK, resp.Result, nil, meta)
}

func (h *AttendanceHandler) csvBody(c *gin.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "multipart field \"file\" is required")
		}
		if header.Size > maxUploadBytes {
			return nil, appErrors.Clone(appErrors.ErrValidation, "attendance CSV exceeds 1MiB")
		}
		file, err := header.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable upload")
		}
		return file, nil
	}
	return http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes), nil
}

// resultError maps an engine failure onto the HTTP error contract.
func resultError(result models.AnalyticsResult) *appErrors.Error {
	if result.Succeeded() {
		return nil
	}
	var base *appErrors.Error
	switch result.Kind {
	case models.FailureNoData:
		base = appErrors.ErrNoData
	case models.FailureInvalidRowData:
		base = appErrors.ErrInvalidRowData
	default:
		base = appErrors.ErrInternal
	}
	failure := appErrors.Clone(base, result.Message)
	failure.Err = result.Err
	return failure
}
