package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// OverallSubject labels the pseudo-subject computed from grand totals.
const OverallSubject = "OVERALL"

// ClassCount holds a class counter exactly as supplied by the portal. It is
// parsed only when rows are aggregated so malformed values can fail the whole batch.
type ClassCount string

// UnmarshalJSON accepts both JSON numbers and JSON strings.
func (c *ClassCount) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*c = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = ClassCount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("class count must be a number or string: %w", err)
	}
	*c = ClassCount(n.String())
	return nil
}

// UnmarshalCSV keeps the cell text verbatim.
func (c *ClassCount) UnmarshalCSV(value string) error {
	*c = ClassCount(value)
	return nil
}

// Int parses the count as a non-negative base-10 integer.
func (c ClassCount) Int() (int, error) {
	raw := strings.TrimSpace(string(c))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("class count %q is not an integer", string(c))
	}
	if n < 0 {
		return 0, fmt.Errorf("class count %q is negative", string(c))
	}
	return n, nil
}

// RawAttendanceRow is one table row as delivered by the portal fetcher.
type RawAttendanceRow struct {
	SubjectName     string     `json:"subject_name" csv:"subject_name"`
	TotalClasses    ClassCount `json:"total_classes" csv:"total_classes"`
	AttendedClasses ClassCount `json:"attended_classes" csv:"attended_classes"`
}

// SubjectKey returns the grouping key: the trimmed label up to the first hyphen.
func (r RawAttendanceRow) SubjectKey() string {
	name := strings.TrimSpace(r.SubjectName)
	if idx := strings.IndexByte(name, '-'); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}

// SubjectAggregate accumulates class counts for a subject bucket.
type SubjectAggregate struct {
	Total    int
	Attended int
}

// Add folds another row's counts into the aggregate.
func (a *SubjectAggregate) Add(total, attended int) {
	a.Total += total
	a.Attended += attended
}

// Thresholds is a normalised, ascending set of attendance ratios.
type Thresholds []float64

// DefaultThresholds mirrors the attendance policy most portals enforce.
func DefaultThresholds() Thresholds {
	return Thresholds{0.60, 0.75}
}

// NewThresholds validates the ratios, removes duplicates and sorts them.
func NewThresholds(values ...float64) (Thresholds, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("at least one threshold is required")
	}
	seen := make(map[string]struct{}, len(values))
	out := make(Thresholds, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || v <= 0 || v >= 1 {
			return nil, fmt.Errorf("threshold %v must be between 0 and 1 (exclusive)", v)
		}
		label := ThresholdLabel(v)
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out, nil
}

// ParseThresholds reads a comma separated list such as "0.60,0.75".
func ParseThresholds(raw string) (Thresholds, error) {
	parts := strings.Split(raw, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold %q", part)
		}
		values = append(values, v)
	}
	return NewThresholds(values...)
}

// ThresholdLabel renders a ratio as the percentage used in field names (0.6 -> "60").
func ThresholdLabel(r float64) string {
	return strconv.FormatFloat(math.Round(r*10000)/100, 'f', -1, 64)
}

// ThresholdProjection holds the projections for one threshold.
type ThresholdProjection struct {
	Threshold float64
	Needed    int
	CanMiss   int
}

// SubjectReport is the analytics output for a subject (or the overall pseudo-subject).
type SubjectReport struct {
	Subject     string
	Total       int
	Attended    int
	Percentage  string
	Projections []ThresholdProjection
}

// NeededFor returns the projection for threshold r, or 0 when r was not computed.
func (s SubjectReport) NeededFor(r float64) int {
	if p, ok := s.projection(r); ok {
		return p.Needed
	}
	return 0
}

// CanMiss returns how many classes may be missed at threshold r.
func (s SubjectReport) CanMiss(r float64) int {
	if p, ok := s.projection(r); ok {
		return p.CanMiss
	}
	return 0
}

func (s SubjectReport) projection(r float64) (ThresholdProjection, bool) {
	label := ThresholdLabel(r)
	for _, p := range s.Projections {
		if ThresholdLabel(p.Threshold) == label {
			return p, true
		}
	}
	return ThresholdProjection{}, false
}

// MarshalJSON writes needed_* fields before can_miss_* fields, each in threshold order.
func (s SubjectReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := write("subject", s.Subject); err != nil {
		return nil, err
	}
	if err := write("total", s.Total); err != nil {
		return nil, err
	}
	if err := write("attended", s.Attended); err != nil {
		return nil, err
	}
	if err := write("percentage", s.Percentage); err != nil {
		return nil, err
	}
	for _, p := range s.Projections {
		if err := write("needed_"+ThresholdLabel(p.Threshold), p.Needed); err != nil {
			return nil, err
		}
	}
	for _, p := range s.Projections {
		if err := write("can_miss_"+ThresholdLabel(p.Threshold), p.CanMiss); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON rebuilds projections from needed_*/can_miss_* fields.
func (s *SubjectReport) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	out := SubjectReport{}
	byLabel := map[string]*ThresholdProjection{}
	projection := func(label string) (*ThresholdProjection, error) {
		if p, ok := byLabel[label]; ok {
			return p, nil
		}
		pct, err := strconv.ParseFloat(label, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold label %q", label)
		}
		p := &ThresholdProjection{Threshold: pct / 100}
		byLabel[label] = p
		return p, nil
	}

	for key, raw := range fields {
		var err error
		switch {
		case key == "subject":
			err = json.Unmarshal(raw, &out.Subject)
		case key == "total":
			err = json.Unmarshal(raw, &out.Total)
		case key == "attended":
			err = json.Unmarshal(raw, &out.Attended)
		case key == "percentage":
			err = json.Unmarshal(raw, &out.Percentage)
		case strings.HasPrefix(key, "needed_"):
			var p *ThresholdProjection
			if p, err = projection(strings.TrimPrefix(key, "needed_")); err == nil {
				err = json.Unmarshal(raw, &p.Needed)
			}
		case strings.HasPrefix(key, "can_miss_"):
			var p *ThresholdProjection
			if p, err = projection(strings.TrimPrefix(key, "can_miss_")); err == nil {
				err = json.Unmarshal(raw, &p.CanMiss)
			}
		}
		if err != nil {
			return fmt.Errorf("decode subject report field %s: %w", key, err)
		}
	}

	for _, p := range byLabel {
		out.Projections = append(out.Projections, *p)
	}
	sort.Slice(out.Projections, func(i, j int) bool {
		return out.Projections[i].Threshold < out.Projections[j].Threshold
	})
	*s = out
	return nil
}

// ResultStatus tags an AnalyticsResult.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusError   ResultStatus = "error"
)

// FailureKind distinguishes why an aggregation produced no analytics.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureNoData         FailureKind = "no_data"
	FailureInvalidRowData FailureKind = "invalid_row_data"
	FailureInternal       FailureKind = "internal"
)

// AnalyticsResult is the tagged outcome of an aggregation run. Callers must
// branch on Status before reading Subjects/Overall or Message.
type AnalyticsResult struct {
	Status   ResultStatus    `json:"status"`
	Subjects []SubjectReport `json:"subjects,omitempty"`
	Overall  *SubjectReport  `json:"overall,omitempty"`
	Message  string          `json:"message,omitempty"`

	Kind FailureKind `json:"-"`
	Err  error       `json:"-"`
}

// Succeeded reports whether the result carries analytics.
func (r AnalyticsResult) Succeeded() bool {
	return r.Status == ResultStatusSuccess
}

// NewFailureResult builds an error-tagged result.
func NewFailureResult(kind FailureKind, message string, err error) AnalyticsResult {
	return AnalyticsResult{Status: ResultStatusError, Message: message, Kind: kind, Err: err}
}
