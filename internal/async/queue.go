// Package async runs document jobs on a fixed pool of workers.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

type Kind string

const (
	KindProcess Kind = "process"
	KindExtract Kind = "extract"
)

// Job is one unit of document work.
type Job struct {
	DocumentID    uuid.UUID
	Kind          Kind
	Deterministic bool // extract with the golden table replay
	ThenExtract   bool // process jobs: extract once the document is classified
	SubmittedAt   time.Time
}

// ErrClosed is returned by Enqueue after Shutdown.
var ErrClosed = errors.New("queue is shutting down")

// Processor is the pipeline surface the workers drive.
type Processor interface {
	Process(ctx context.Context, documentID uuid.UUID) (*entity.Document, error)
	ExtractFields(ctx context.Context, documentID uuid.UUID, deterministic bool) (*entity.Document, error)
	RefreshCaseStatus(ctx context.Context, caseID uuid.UUID) (constants.CaseStatus, error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

type ProcessorQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// senders hold the read lock so Shutdown never closes ch under them
	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("async.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Info("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// run executes one job under the per-job timeout and refreshes the case
// status of the document afterwards.
func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	logger := q.logger.With("worker_id", workerID, "document_id", job.DocumentID, "kind", job.Kind)

	var (
		doc *entity.Document
		err error
	)
	switch job.Kind {
	case KindExtract:
		doc, err = q.proc.ExtractFields(ctx, job.DocumentID, job.Deterministic)
	default:
		doc, err = q.proc.Process(ctx, job.DocumentID)
		if err == nil && job.ThenExtract && doc.Status == constants.DocumentClassified && doc.HasDocType() {
			doc, err = q.proc.ExtractFields(ctx, job.DocumentID, job.Deterministic)
		}
	}
	if err != nil {
		logger.Error("async.job.failed", "error", err, "waited", time.Since(job.SubmittedAt))
		return
	}

	if _, err := q.proc.RefreshCaseStatus(context.WithoutCancel(ctx), doc.CaseID); err != nil {
		logger.Error("async.case_status.failed", "case_id", doc.CaseID, "error", err)
	}
	logger.Info("async.job.ok", "status", doc.Status, "doc_type", doc.TypeOrEmpty())
}

// Enqueue adds a job, blocking while the queue is full until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.Kind == "" {
		job.Kind = KindProcess
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "document_id", job.DocumentID)
		return ErrClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.enqueue.ok", "document_id", job.DocumentID, "kind", job.Kind)
		return nil
	default:
	}
	q.logger.Warn("async.enqueue.backpressure", "document_id", job.DocumentID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx
// to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
