package supervisor

import (
	"context"
	"runtime"
	"time"

	service "github.com/okian/cinerank/internal/app"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"
)

const nanosecondsPerMillisecond = 1e6

// StatsSource is implemented by *service.Service. Reading stats refreshes
// the service gauges as a side effect.
type StatsSource interface {
	Stats(ctx context.Context) (service.Stats, error)
}

// MetricsService periodically refreshes service and runtime gauges.
type MetricsService struct {
	stats    StatsSource
	interval time.Duration
	logger   logger.Logger
}

// NewMetricsService creates the updater. A non-positive interval selects 5s.
func NewMetricsService(stats StatsSource, interval time.Duration) *MetricsService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &MetricsService{stats: stats, interval: interval, logger: logger.Named("metrics")}
}

// Serve ticks until ctx is cancelled.
func (m *MetricsService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.update(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.update(ctx)
		}
	}
}

func (m *MetricsService) update(ctx context.Context) {
	if _, err := m.stats.Stats(ctx); err != nil && ctx.Err() == nil {
		m.logger.Warn(ctx, "stats refresh failed", logger.Error(err))
	}
	updateSystemMetrics()
}

func (m *MetricsService) String() string { return "metrics-updater" }

// updateSystemMetrics records memory, goroutine and GC pause gauges.
func updateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	metrics.UpdateSystemMemoryUsage(ms.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if ms.NumGC > 0 {
		avgPauseMs := float64(ms.PauseTotalNs) / float64(ms.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
