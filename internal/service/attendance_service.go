package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-analyzer/internal/dto"
	"github.com/noah-isme/attendance-analyzer/internal/models"
	appErrors "github.com/noah-isme/attendance-analyzer/pkg/errors"
	"github.com/noah-isme/attendance-analyzer/pkg/jobs"
)

// JobTypePersistReport tags queue jobs that write a report to history.
const JobTypePersistReport = "attendance.persist_report"

const reportCacheKeyPrefix = "attendance:report:"

type attendanceReportRepository interface {
	Create(ctx context.Context, report *models.AttendanceReport) error
	GetByID(ctx context.Context, id string) (*models.AttendanceReport, error)
	List(ctx context.Context, filter models.AttendanceReportFilter) ([]models.AttendanceReportSummary, int, error)
	Delete(ctx context.Context, id string) error
}

type reportDispatcher interface {
	Enqueue(job jobs.Job) error
}

// AttendanceServiceConfig carries the runtime knobs of the attendance service.
type AttendanceServiceConfig struct {
	Thresholds     models.Thresholds
	MaxRows        int
	HistoryEnabled bool
	CacheTTL       time.Duration
}

// AttendanceService runs attendance analytics and manages report history.
type AttendanceService struct {
	repo       attendanceReportRepository
	cache      *CacheService
	metrics    *MetricsService
	dispatcher reportDispatcher
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        AttendanceServiceConfig
}

// NewAttendanceService constructs the attendance service. repo may be nil when history is disabled.
func NewAttendanceService(repo attendanceReportRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg AttendanceServiceConfig) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = models.DefaultThresholds()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 500
	}
	if repo == nil {
		cfg.HistoryEnabled = false
	}
	svc := &AttendanceService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, cfg: cfg}
	maxRows := cfg.MaxRows
	svc.validator.RegisterValidation("attendance_rows", func(fl validator.FieldLevel) bool {
		return fl.Field().Len() <= maxRows
	})
	return svc
}

// SetDispatcher routes report persistence through a background queue. Without
// one, reports are written synchronously during Analyze.
func (s *AttendanceService) SetDispatcher(d reportDispatcher) {
	s.dispatcher = d
}

// HistoryEnabled reports whether report history is available.
func (s *AttendanceService) HistoryEnabled() bool {
	return s.cfg.HistoryEnabled
}

// Thresholds returns the configured default thresholds.
func (s *AttendanceService) Thresholds() models.Thresholds {
	return s.cfg.Thresholds
}

// Analyze validates the request and runs the aggregation engine. Engine
// failures come back inside the response; the error return is reserved for
// request and history problems.
func (s *AttendanceService) Analyze(ctx context.Context, req dto.AnalyzeRequest) (*dto.AnalyzeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			fmt.Sprintf("invalid analyze request (at most %d rows, thresholds between 0 and 1)", s.cfg.MaxRows))
	}

	thresholds := s.cfg.Thresholds
	if len(req.Thresholds) > 0 {
		custom, err := models.NewThresholds(req.Thresholds...)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		thresholds = custom
	}

	start := time.Now()
	result := Aggregate(req.Rows, thresholds)
	s.metrics.ObserveAggregation(result.Kind, len(req.Rows), time.Since(start))

	resp := &dto.AnalyzeResponse{Result: result}
	if !result.Succeeded() {
		s.logFailure(result, len(req.Rows))
		return resp, nil
	}

	if !req.Save {
		return resp, nil
	}
	if !s.cfg.HistoryEnabled {
		s.logger.Debug("save requested while history is disabled")
		return resp, nil
	}

	report := newReport(req.Label, thresholds, result)
	if err := s.submit(ctx, report); err != nil {
		return nil, err
	}
	resp.ReportID = report.ID
	return resp, nil
}

// Report returns a stored report, consulting the cache first. The bool reports a cache hit.
func (s *AttendanceService) Report(ctx context.Context, id string) (*models.AttendanceReport, bool, error) {
	if !s.cfg.HistoryEnabled {
		return nil, false, appErrors.ErrHistoryDisabled
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "attendance report not found")
	}

	key := reportCacheKey(id)
	var cached models.AttendanceReport
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	start := time.Now()
	report, err := s.repo.GetByID(ctx, id)
	s.metrics.ObserveDBQuery("attendance_report_get", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "attendance report not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance report")
	}

	_ = s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return report, false, nil
}

// ListReports returns stored report summaries, newest first.
func (s *AttendanceService) ListReports(ctx context.Context, req dto.ReportListRequest) ([]models.AttendanceReportSummary, *models.Pagination, error) {
	if !s.cfg.HistoryEnabled {
		return nil, nil, appErrors.ErrHistoryDisabled
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = 20
	}

	start := time.Now()
	reports, total, err := s.repo.List(ctx, models.AttendanceReportFilter{Label: req.Label, Page: page, PageSize: size})
	s.metrics.ObserveDBQuery("attendance_report_list", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance reports")
	}
	if reports == nil {
		reports = []models.AttendanceReportSummary{}
	}
	return reports, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// DeleteReport removes a stored report and its cache entry.
func (s *AttendanceService) DeleteReport(ctx context.Context, id string) error {
	if !s.cfg.HistoryEnabled {
		return appErrors.ErrHistoryDisabled
	}
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "attendance report not found")
	}

	start := time.Now()
	err := s.repo.Delete(ctx, id)
	s.metrics.ObserveDBQuery("attendance_report_delete", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance report")
	}

	_ = s.cache.Invalidate(ctx, reportCacheKey(id))
	return nil
}

// HandleJob is the queue handler that persists reports submitted by Analyze.
func (s *AttendanceService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypePersistReport {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	report, ok := job.Payload.(*models.AttendanceReport)
	if !ok || report == nil {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	return s.persist(ctx, report)
}

func (s *AttendanceService) submit(ctx context.Context, report *models.AttendanceReport) error {
	if s.dispatcher == nil {
		if err := s.persist(ctx, report); err != nil {
			return appErrors.Wrap(err, appErrors.ErrHistoryBusy.Code, appErrors.ErrHistoryBusy.Status, "failed to save attendance report")
		}
		return nil
	}

	err := s.dispatcher.Enqueue(jobs.Job{ID: report.ID, Type: JobTypePersistReport, Payload: report})
	if err != nil {
		s.logger.Error("enqueue attendance report", zap.String("report_id", report.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrHistoryBusy.Code, appErrors.ErrHistoryBusy.Status, appErrors.ErrHistoryBusy.Message)
	}
	return nil
}

func (s *AttendanceService) persist(ctx context.Context, report *models.AttendanceReport) error {
	start := time.Now()
	err := s.repo.Create(ctx, report)
	s.metrics.ObserveDBQuery("attendance_report_create", time.Since(start))
	s.metrics.RecordHistoryWrite(err == nil)
	if err != nil {
		return err
	}

	_ = s.cache.Set(ctx, reportCacheKey(report.ID), report, s.cfg.CacheTTL)
	s.logger.Info("attendance report stored",
		zap.String("report_id", report.ID),
		zap.Int("subjects", report.SubjectCount),
	)
	return nil
}

func (s *AttendanceService) logFailure(result models.AnalyticsResult, rows int) {
	fields := []zap.Field{
		zap.String("kind", string(result.Kind)),
		zap.Int("rows", rows),
	}
	if result.Err != nil {
		fields = append(fields, zap.Error(result.Err))
	}
	switch result.Kind {
	case models.FailureNoData:
		s.logger.Info("attendance aggregation found no rows", fields...)
	case models.FailureInternal:
		s.logger.Error("attendance aggregation failed", fields...)
	default:
		s.logger.Warn("attendance aggregation rejected input", fields...)
	}
}

func newReport(label string, thresholds models.Thresholds, result models.AnalyticsResult) *models.AttendanceReport {
	report := &models.AttendanceReport{
		ID:           uuid.NewString(),
		Thresholds:   thresholds,
		SubjectCount: len(result.Subjects),
		Result:       result,
		CreatedAt:    time.Now().UTC(),
	}
	if label != "" {
		report.Label = &label
	}
	if result.Overall != nil {
		report.OverallPercentage = result.Overall.Percentage
	}
	return report
}

func reportCacheKey(id string) string {
	return reportCacheKeyPrefix + id
}
