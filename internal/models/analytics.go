package models

import "time"

// AnalyticsSystemMetrics is an instrumentation snapshot served next to the Prometheus endpoint.
type AnalyticsSystemMetrics struct {
	AggregationsTotal        uint64    `json:"aggregations_total"`
	AggregationFailures      uint64    `json:"aggregation_failures"`
	RowsProcessed            uint64    `json:"rows_processed"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
