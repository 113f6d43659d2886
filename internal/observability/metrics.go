package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sociable_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ToggleTotal counts follow and like toggles by kind and resulting status.
	ToggleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociable_toggles_total",
		Help: "Follow and like toggles by kind and resulting status",
	}, []string{"kind", "status"})

	// NotificationsPublished counts notification events by type and outcome.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociable_notifications_published_total",
		Help: "Notification events published to Redis",
	}, []string{"type", "outcome"})

	// TasksProcessed counts background tasks by queue and outcome.
	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociable_tasks_processed_total",
		Help: "Background tasks processed by queue and outcome",
	}, []string{"queue", "outcome"})

	// CacheLookups counts cache-aside lookups by key prefix and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociable_cache_lookups_total",
		Help: "Cache lookups by key prefix and result (hit, miss, error)",
	}, []string{"prefix", "result"})

	// WebSocketDrops counts outbound websocket messages dropped by reason.
	WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociable_websocket_dropped_messages_total",
		Help: "Outbound websocket messages dropped because the client was closed or too slow",
	}, []string{"reason"})
)

const startTimeKey = "observability:start"

// InstrumentGorm registers callbacks that feed DatabaseQueryLatency.
func InstrumentGorm(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(startTimeKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(startTimeKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "raw"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []func() error{
		func() error {
			if err := cb.Create().Before("gorm:create").Register("observability:before_create", before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("observability:after_create", after("create"))
		},
		func() error {
			if err := cb.Query().Before("gorm:query").Register("observability:before_query", before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("observability:after_query", after("query"))
		},
		func() error {
			if err := cb.Update().Before("gorm:update").Register("observability:before_update", before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("observability:after_update", after("update"))
		},
		func() error {
			if err := cb.Delete().Before("gorm:delete").Register("observability:before_delete", before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("observability:after_delete", after("delete"))
		},
		func() error {
			if err := cb.Row().Before("gorm:row").Register("observability:before_row", before); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("observability:after_row", after("row"))
		},
	}

	for _, register := range steps {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
