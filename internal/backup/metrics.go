package backup

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	backupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memory_storage_backup_duration_seconds",
		Help:    "Time to create a backup archive",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
	}, []string{"status"})

	restoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memory_storage_restore_duration_seconds",
		Help:    "Time to restore the store from a backup archive",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
	}, []string{"status"})

	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memory_storage_backup_operations_total",
		Help: "Backup operations by type and status",
	}, []string{"operation", "status"})

	retainedArchives = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "memory_storage_backup_archives",
		Help: "Number of retained backup archives",
	})

	lastArchiveSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "memory_storage_backup_last_size_bytes",
		Help: "Size of the most recent backup archive in bytes",
	})
)

var tracer = otel.Tracer("memory-storage/backup")

// loggerWithTrace adds the span's ids to logger when ctx carries a recording span.
func loggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}
