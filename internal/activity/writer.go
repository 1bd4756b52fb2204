package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the writer needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// WriterConfig configures a Writer.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
	}
}

// WriterMetrics tracks writer activity.
type WriterMetrics struct {
	Inserts int64
	Errors  int64
	Flushes int64
	Dropped int64
}

// Writer batches entries into the activity table.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger
	db     DB

	queue  *queue[Entry]
	notify chan struct{}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metricsMu sync.Mutex
	metrics   WriterMetrics
}

// NewWriter creates a Writer. Call Start before recording.
func NewWriter(cfg WriterConfig, db DB, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger.With("component", "activity_writer"),
		queue:  newQueue[Entry](cfg.BufferSize),
		notify: make(chan struct{}, 1),
		ctx:    context.Background(),
	}
}

// Start begins the flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("activity writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the loop and writes whatever is still queued.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping activity writer")

	if w.cancel != nil {
		w.cancel()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("activity writer stopped")
	case <-ctx.Done():
		w.logger.Warn("activity writer stop timed out")
	}

	// Final flush on a fresh context; the loop's context is already cancelled.
	w.drain(ctx)

	return nil
}

// Record queues an entry. It never blocks.
func (w *Writer) Record(e Entry) {
	if w.queue.Push(e) >= w.cfg.BatchSize {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	m := w.metrics
	m.Dropped = w.queue.Dropped()
	return m
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		case <-w.notify:
			w.flush(w.ctx)
		}
	}
}

// drain flushes until the queue is empty or a flush fails.
func (w *Writer) drain(ctx context.Context) {
	for w.queue.Len() > 0 {
		if !w.flush(ctx) {
			return
		}
	}
}

// flush writes one batch. It returns false if the insert failed.
func (w *Writer) flush(ctx context.Context) bool {
	batch := w.queue.DrainTo(w.cfg.BatchSize)
	if len(batch) == 0 {
		return true
	}

	start := time.Now()

	if err := w.batchInsert(ctx, batch); err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.metricsMu.Lock()
		w.metrics.Errors++
		w.metricsMu.Unlock()
		return false
	}

	w.metricsMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.metricsMu.Unlock()

	w.logger.Debug("flushed activity",
		"count", len(batch),
		"duration", time.Since(start),
	)
	return true
}

// row is the column order of the activity table.
type row struct {
	ID         string
	Kind       string
	ChannelID  *string
	Author     *string
	Content    string
	OccurredAt time.Time
}

func transform(e Entry) row {
	return row{
		ID:         e.ID.String(),
		Kind:       string(e.Kind),
		ChannelID:  nullable(e.ChannelID),
		Author:     nullable(e.Author),
		Content:    e.Content,
		OccurredAt: e.OccurredAt.UTC(),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// batchInsert inserts entries using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, entries []Entry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		r := transform(e)
		batch.Queue(insertSQL, r.ID, r.Kind, r.ChannelID, r.Author, r.Content, r.OccurredAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
