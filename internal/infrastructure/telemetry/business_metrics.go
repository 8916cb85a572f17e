package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when metrics are constructed without a meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Replay outcome labels.
const (
	ReplayOutcomeApplied    = "applied"
	ReplayOutcomeConflicted = "conflicted"
)

// LowStockProvider reports how many items sit at or below their minimum
// threshold. The telemetry layer polls it periodically so dashboards see
// low-stock pressure without the inventory domain depending on telemetry.
type LowStockProvider interface {
	LowStockCount(ctx context.Context) (int64, error)
}

// BusinessMetrics tracks the business-level health of the deduction core:
// committed sales, commit-time stock conflicts, replay outcomes, and the
// low-stock item count.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	salesCommittedTotal *Counter
	itemsDeductedTotal  *Counter
	saleConflictsTotal  *Counter
	replayTotal         *Counter

	lowStockCount *Gauge

	stopChan chan struct{}
	stopOnce sync.Once

	lowStockProvider LowStockProvider
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter            metric.Meter
	Logger           *zap.Logger
	CollectInterval  time.Duration // Default: 5 minutes
	LowStockProvider LowStockProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:            cfg.Meter,
		logger:           logger,
		stopChan:         make(chan struct{}),
		lowStockProvider: cfg.LowStockProvider,
	}

	var err error
	bm.salesCommittedTotal, err = NewCounter(cfg.Meter,
		"pos_sales_committed_total", "Sales committed against inventory", "{sale}")
	if err != nil {
		return nil, err
	}
	bm.itemsDeductedTotal, err = NewCounter(cfg.Meter,
		"pos_items_deducted_total", "Inventory items deducted by committed sales", "{item}")
	if err != nil {
		return nil, err
	}
	bm.saleConflictsTotal, err = NewCounter(cfg.Meter,
		"pos_sale_conflicts_total", "Sales rejected at commit for insufficient stock", "{sale}")
	if err != nil {
		return nil, err
	}
	bm.replayTotal, err = NewCounter(cfg.Meter,
		"pos_replay_entries_total", "Offline queue entries processed by replay", "{entry}")
	if err != nil {
		return nil, err
	}
	bm.lowStockCount, err = NewGauge(cfg.Meter,
		"pos_low_stock_items", "Items at or below their minimum threshold", "{item}")
	if err != nil {
		return nil, err
	}

	if cfg.LowStockProvider != nil {
		interval := cfg.CollectInterval
		if interval == 0 {
			interval = 5 * time.Minute
		}
		go bm.collectLoop(interval)
	}

	return bm, nil
}

// RecordSaleCommitted records a committed sale and how many items it deducted.
func (bm *BusinessMetrics) RecordSaleCommitted(ctx context.Context, storeID uuid.UUID, itemCount int) {
	attrs := []attribute.KeyValue{AttrStoreID.String(storeID.String())}
	bm.salesCommittedTotal.Inc(ctx, attrs...)
	if itemCount > 0 {
		bm.itemsDeductedTotal.Add(ctx, int64(itemCount), attrs...)
	}
}

// RecordSaleConflict records a sale rejected at commit time.
func (bm *BusinessMetrics) RecordSaleConflict(ctx context.Context, storeID uuid.UUID) {
	bm.saleConflictsTotal.Inc(ctx, AttrStoreID.String(storeID.String()))
}

// RecordReplay records one replay outcome (applied or conflicted).
func (bm *BusinessMetrics) RecordReplay(ctx context.Context, storeID uuid.UUID, outcome string) {
	bm.replayTotal.Inc(ctx,
		AttrStoreID.String(storeID.String()),
		AttrOutcome.String(outcome))
}

// Stop stops the periodic low-stock collector.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

func (bm *BusinessMetrics) collectLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-bm.stopChan:
			return
		case <-ticker.C:
			bm.collectLowStock()
		}
	}
}

func (bm *BusinessMetrics) collectLowStock() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := bm.lowStockProvider.LowStockCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to collect low stock count", zap.Error(err))
		return
	}
	bm.lowStockCount.Record(ctx, count)
}
