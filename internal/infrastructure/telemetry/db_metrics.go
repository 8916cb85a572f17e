package telemetry

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DBMetrics periodically samples the sql.DB connection pool so saturation
// shows up before it turns into request latency.
type DBMetrics struct {
	db     *sql.DB
	logger *zap.Logger

	openConnections *Gauge
	inUse           *Gauge
	idle            *Gauge
	waitCount       *Gauge
	waitDuration    *Histogram

	stopChan chan struct{}
	stopOnce sync.Once

	lastWaitCount    int64
	lastWaitDuration time.Duration
}

// NewDBMetrics creates pool metrics over the given database handle and starts
// the sampling loop.
func NewDBMetrics(meter metric.Meter, db *sql.DB, interval time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval == 0 {
		interval = 15 * time.Second
	}

	m := &DBMetrics{
		db:       db,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	var err error
	m.openConnections, err = NewGauge(meter, "db_pool_open_connections", "Open database connections", "{connection}")
	if err != nil {
		return nil, err
	}
	m.inUse, err = NewGauge(meter, "db_pool_in_use", "Database connections currently in use", "{connection}")
	if err != nil {
		return nil, err
	}
	m.idle, err = NewGauge(meter, "db_pool_idle", "Idle database connections", "{connection}")
	if err != nil {
		return nil, err
	}
	m.waitCount, err = NewGauge(meter, "db_pool_wait_count", "Connections waited for since start", "{wait}")
	if err != nil {
		return nil, err
	}
	m.waitDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_pool_wait_duration_seconds",
		Description: "Time spent waiting for a connection between samples",
		Unit:        "s",
	})
	if err != nil {
		return nil, err
	}

	go m.sampleLoop(interval)
	return m, nil
}

// Stop stops the sampling loop.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

func (m *DBMetrics) sampleLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *DBMetrics) sample() {
	ctx := context.Background()
	stats := m.db.Stats()

	m.openConnections.Record(ctx, int64(stats.OpenConnections))
	m.inUse.Record(ctx, int64(stats.InUse))
	m.idle.Record(ctx, int64(stats.Idle))
	m.waitCount.Record(ctx, stats.WaitCount)

	if delta := stats.WaitDuration - m.lastWaitDuration; delta > 0 {
		m.waitDuration.RecordDuration(ctx, delta)
	}
	m.lastWaitCount = stats.WaitCount
	m.lastWaitDuration = stats.WaitDuration
}
