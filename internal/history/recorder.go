package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcarver/devsync/internal/bridge"
)

// Config contains configuration for the history recorder.
type Config struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the capacity of the input channel. Updates arriving
	// while the buffer is full are dropped so the bridge never blocks.
	BufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
		BufferSize:    4096,
	}
}

// updateRow represents a row to be inserted into the update_history table.
type updateRow struct {
	Target     string
	Kind       string
	Payload    []byte
	SourceTs   int64 // Microseconds, 0 when the message carried no timestamp
	ReceivedAt int64 // Microseconds
}

// Metrics holds counters for the recorder.
type Metrics struct {
	Inserts int64
	Errors  int64
	Flushes int64
	Dropped int64
}

// Recorder persists accepted updates to the update_history table in
// batches. It implements bridge.Recorder; Record never blocks.
type Recorder struct {
	cfg    Config
	logger *slog.Logger

	// Input from the bridge
	input chan bridge.Update

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []updateRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics Metrics
}

// New creates a Recorder.
func New(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan bridge.Update, cfg.BufferSize),
		batch:  make([]updateRow, 0, cfg.BatchSize),
	}
}

// Record enqueues an accepted update for persistence. Called by the
// bridge on its dispatch path, so it drops rather than blocks when the
// buffer is full.
func (r *Recorder) Record(u bridge.Update) {
	select {
	case r.input <- u:
	default:
		r.batchMu.Lock()
		r.metrics.Dropped++
		r.batchMu.Unlock()
	}
}

// Start begins consuming updates and writing to the database.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	// Consumer goroutine
	r.wg.Add(1)
	go r.consumeLoop()

	// Flush ticker goroutine
	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("history recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the recorder.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping history recorder")

	if r.cancel != nil {
		r.cancel()
	}

	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("history recorder stopped")
	case <-ctx.Done():
		r.logger.Warn("history recorder stop timed out")
	}

	// Final flush. r.ctx is canceled by now, so the tail batch goes
	// out under the caller's context.
	r.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// consumeLoop reads from the input channel and accumulates batches.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case u := <-r.input:
			r.handleUpdate(u)
		}
	}
}

// flushLoop periodically flushes the batch.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush(r.ctx)
		}
	}
}

// handleUpdate transforms and adds an update to the batch.
func (r *Recorder) handleUpdate(u bridge.Update) {
	row := r.transform(u)

	r.batchMu.Lock()
	r.batch = append(r.batch, row)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush(r.ctx)
	}
}

// transform converts a bridge.Update to an updateRow.
func (r *Recorder) transform(u bridge.Update) updateRow {
	var sourceTs int64
	if !u.Timestamp.IsZero() {
		sourceTs = u.Timestamp.UnixMicro()
	}
	return updateRow{
		Target:     u.Target,
		Kind:       u.Kind,
		Payload:    []byte(u.Payload),
		SourceTs:   sourceTs,
		ReceivedAt: u.ReceivedAt.UnixMicro(),
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush(ctx context.Context) {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := r.batch
	r.batch = make([]updateRow, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	if err := r.batchInsert(ctx, batch); err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch))
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed updates",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch.
func (r *Recorder) batchInsert(ctx context.Context, rows []updateRow) error {
	// No pool configured; nothing to write.
	if r.db == nil {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO update_history (target, kind, payload, source_ts, received_at)
			VALUES ($1, $2, $3, $4, $5)
		`, row.Target, row.Kind, row.Payload, row.SourceTs, row.ReceivedAt)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}
