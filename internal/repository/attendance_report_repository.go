package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-analyzer/internal/models"
)

const (
	defaultReportPageSize = 20
	maxReportPageSize     = 100
)

// AttendanceReportRepository persists analytics runs in PostgreSQL.
type AttendanceReportRepository struct {
	db *sqlx.DB
}

// NewAttendanceReportRepository constructs the repository.
func NewAttendanceReportRepository(db *sqlx.DB) *AttendanceReportRepository {
	return &AttendanceReportRepository{db: db}
}

// Create inserts a report. Re-inserting an existing ID is a no-op so queue retries stay idempotent.
func (r *AttendanceReportRepository) Create(ctx context.Context, report *models.AttendanceReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_reports (id, label, thresholds, subject_count, overall_percentage, result, created_at)
VALUES (:id, :label, :thresholds, :subject_count, :overall_percentage, :result, :created_at)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create attendance report: %w", err)
	}
	return nil
}

// GetByID returns a stored report. A missing row surfaces as sql.ErrNoRows.
func (r *AttendanceReportRepository) GetByID(ctx context.Context, id string) (*models.AttendanceReport, error) {
	const query = `SELECT id, label, thresholds, subject_count, overall_percentage, result, created_at
FROM attendance_reports WHERE id = $1`
	var report models.AttendanceReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, fmt.Errorf("get attendance report: %w", err)
	}
	return &report, nil
}

// List returns report summaries newest first together with the total match count.
func (r *AttendanceReportRepository) List(ctx context.Context, filter models.AttendanceReportFilter) ([]models.AttendanceReportSummary, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultReportPageSize
	}
	if size > maxReportPageSize {
		size = maxReportPageSize
	}

	where := ""
	args := []interface{}{}
	if filter.Label != "" {
		where = " WHERE label = $1"
		args = append(args, filter.Label)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM attendance_reports"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance reports: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, label, subject_count, overall_percentage, created_at
FROM attendance_reports%s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	var reports []models.AttendanceReportSummary
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance reports: %w", err)
	}
	return reports, total, nil
}

// Delete removes a report, returning sql.ErrNoRows when nothing matched.
func (r *AttendanceReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance report rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete attendance report: %w", sql.ErrNoRows)
	}
	return nil
}

// Ping checks database connectivity for readiness probes.
func (r *AttendanceReportRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
