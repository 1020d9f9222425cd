package models

import "time"

// SystemMetrics is the admin-facing summary of runtime instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64          `json:"cache_hit_ratio"`
	CacheHits                uint64           `json:"cache_hits"`
	CacheMisses              uint64           `json:"cache_misses"`
	RequestsTotal            uint64           `json:"requests_total"`
	AverageRequestDurationMs float64          `json:"average_request_duration_ms"`
	DBQueryCount             uint64           `json:"db_query_count"`
	AverageDBQueryDurationMs float64          `json:"average_db_query_duration_ms"`
	TutorSearches            uint64           `json:"tutor_searches"`
	GuardDecisions           map[string]int64 `json:"guard_decisions"`
	JobsProcessed            uint64           `json:"jobs_processed"`
	JobsFailed               uint64           `json:"jobs_failed"`
	Goroutines               int              `json:"goroutines"`
	GeneratedAt              time.Time        `json:"generated_at"`
}
