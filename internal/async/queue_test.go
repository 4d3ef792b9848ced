package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

type fakeProcessor struct {
	mu        sync.Mutex
	caseID    uuid.UUID
	calls     []string
	refreshed int
	block     chan struct{}
	fail      bool
	deadline  bool
}

func (f *fakeProcessor) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeProcessor) Process(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	if f.block != nil {
		<-f.block
	}
	if f.deadline {
		_, ok := ctx.Deadline()
		f.record("deadline:" + map[bool]string{true: "yes", false: "no"}[ok])
	}
	f.record("process")
	if f.fail {
		return nil, errors.New("boom")
	}
	invoice := constants.DocInvoice
	return &entity.Document{ID: id, CaseID: f.caseID, Status: constants.DocumentClassified, DocType: &invoice}, nil
}

func (f *fakeProcessor) ExtractFields(_ context.Context, id uuid.UUID, deterministic bool) (*entity.Document, error) {
	f.record(map[bool]string{true: "extract:mock", false: "extract:model"}[deterministic])
	return &entity.Document{ID: id, CaseID: f.caseID, Status: constants.DocumentExtracted}, nil
}

func (f *fakeProcessor) RefreshCaseStatus(_ context.Context, caseID uuid.UUID) (constants.CaseStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caseID == f.caseID {
		f.refreshed++
	}
	return constants.CaseReadyL1, nil
}

func (f *fakeProcessor) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...), f.refreshed
}

var quiet = slog.New(slog.DiscardHandler)

func TestQueue_RunsJobs(t *testing.T) {
	proc := &fakeProcessor{caseID: uuid.New(), deadline: true}
	q := NewProcessorQueue(proc, quiet, WithWorkers(1), WithProcessTimeout(time.Minute))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{DocumentID: uuid.New(), ThenExtract: true, Deterministic: true}))
	require.NoError(t, q.Enqueue(ctx, Job{DocumentID: uuid.New(), Kind: KindExtract}))
	q.Shutdown(ctx)

	calls, refreshed := proc.snapshot()
	assert.Equal(t, []string{"deadline:yes", "process", "extract:mock", "extract:model"}, calls)
	assert.Equal(t, 2, refreshed)
}

func TestQueue_FailedJobSkipsRefresh(t *testing.T) {
	proc := &fakeProcessor{caseID: uuid.New(), fail: true}
	q := NewProcessorQueue(proc, quiet, WithWorkers(2))

	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New(), ThenExtract: true}))
	q.Shutdown(context.Background())

	calls, refreshed := proc.snapshot()
	assert.Equal(t, []string{"process"}, calls)
	assert.Zero(t, refreshed)
}

func TestQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, quiet)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_EnqueueHonoursContextWhenFull(t *testing.T) {
	proc := &fakeProcessor{caseID: uuid.New(), block: make(chan struct{})}
	q := NewProcessorQueue(proc, quiet, WithWorkers(1), WithQueueSize(1))

	// one job held by the worker, one filling the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{DocumentID: uuid.New()})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proc.block)
	q.Shutdown(context.Background())
	calls, _ := proc.snapshot()
	assert.Len(t, calls, 2)
}

func TestQueue_ShutdownInterrupted(t *testing.T) {
	proc := &fakeProcessor{caseID: uuid.New(), block: make(chan struct{})}
	q := NewProcessorQueue(proc, quiet, WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	q.Shutdown(ctx)
	assert.Less(t, time.Since(start), time.Second)

	close(proc.block)
}
