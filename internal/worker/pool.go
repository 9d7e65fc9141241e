// Package worker implements the buffered worker pool for settled prop
// outcomes. This decouples HTTP ingestion from database writes, providing:
// - Backpressure handling via the bounded queue
// - Batch inserts into Postgres for the next training run
// - Cache invalidation for players whose history just changed

package worker

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/riftstats/props-api/internal/models"
	"github.com/riftstats/props-api/internal/store"
)

// Prometheus metrics
var (
	outcomesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_outcomes_ingested_total",
		Help: "Total settled outcomes accepted into the queue",
	})

	outcomesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_outcomes_processed_total",
		Help: "Total settled outcomes written to Postgres",
	})

	outcomesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "props_outcomes_failed_total",
		Help: "Total settled outcomes that failed processing",
	})

	outcomeQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "props_outcome_queue_depth",
		Help: "Current depth of the outcome queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "props_outcome_batch_insert_duration_seconds",
		Help:    "Duration of outcome batch inserts to Postgres",
		Buckets: prometheus.DefBuckets,
	})
)

// PoolConfig configures the outcome worker pool.
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	Postgres      store.PgPool
	Redis         *redis.Client
	Logger        *zap.Logger
}

// Pool batches settled prop outcomes into Postgres.
type Pool struct {
	config   PoolConfig
	jobQueue chan *models.PropOutcome
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
}

// NewPool creates the outcome worker pool.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	return &Pool{
		config:   cfg,
		jobQueue: make(chan *models.PropOutcome, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	go p.reportQueueDepth()

	p.logger.Infow("Outcome worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop gracefully shuts down the pool, flushing pending batches.
func (p *Pool) Stop() {
	p.logger.Info("Stopping outcome worker pool...")
	p.cancel()
	close(p.jobQueue)
	p.wg.Wait()
	p.logger.Info("Outcome worker pool stopped")
}

// Enqueue adds a settled outcome to the queue. Returns false when the pool
// is shutting down or the queue is saturated.
func (p *Pool) Enqueue(outcome *models.PropOutcome) bool {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue outcome (pool stopped)", "error", r)
		}
	}()

	select {
	case p.jobQueue <- outcome:
		outcomesIngested.Inc()
		return true
	default:
		p.logger.Warn("Outcome queue saturated, dropping outcome")
		outcomesFailed.Inc()
		return false
	}
}

// QueueDepth returns the current queue size.
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]*models.PropOutcome, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := p.processBatch(batch); err != nil {
			p.logger.Errorw("Outcome batch failed", "worker", id, "batchSize", len(batch), "error", err)
			outcomesFailed.Add(float64(len(batch)))
		} else {
			outcomesProcessed.Add(float64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())
		batch = batch[:0]
	}

	for {
		select {
		case outcome, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, outcome)
			if len(batch) >= p.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-p.ctx.Done():
			// Drain what Stop already accepted; the queue is closed right
			// after cancellation.
			for outcome := range p.jobQueue {
				batch = append(batch, outcome)
				if len(batch) >= p.config.BatchSize {
					flush()
				}
			}
			flush()
			return
		}
	}
}

// processBatch bulk-inserts a batch into prop_outcomes and bumps each
// affected player's cache version.
func (p *Pool) processBatch(batch []*models.PropOutcome) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(`INSERT INTO prop_outcomes (
		player_name, prop_type, prop_value, actual_value, over_hit, raw_prob,
		match_date, schema_version,
		mean, std_dev, bounded_z, volatility, sample_size_score,
		market_distance, patch_recency, position_factor, tier_weight, recent_form
	) VALUES `)

	const cols = 18
	args := make([]interface{}, 0, len(batch)*cols)
	for i, o := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder(i*cols + j + 1))
		}
		sb.WriteString(")")

		f := o.Features
		args = append(args,
			o.PlayerName, string(o.PropType), o.PropValue, o.ActualValue, o.Over, o.RawProb,
			o.MatchDate, f.SchemaVersion,
			f.Mean, f.StdDev, f.BoundedZ, f.Volatility, f.SampleSizeScore,
			f.MarketDistance, f.PatchRecency, f.PositionFactor, f.TierWeight, f.RecentForm,
		)
	}

	if _, err := p.config.Postgres.Exec(ctx, sb.String(), args...); err != nil {
		return err
	}

	// Invalidate cached predictions for the affected players.
	if p.config.Redis == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(batch))
	for _, o := range batch {
		if _, dup := seen[o.PlayerName]; dup {
			continue
		}
		seen[o.PlayerName] = struct{}{}
		if err := store.BumpPlayer(ctx, p.config.Redis, o.PlayerName); err != nil {
			p.logger.Warnw("Failed to bump player cache version", "player", o.PlayerName, "error", err)
		}
	}
	return nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			outcomeQueueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
