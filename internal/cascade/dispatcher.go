package cascade

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hostelhub/fee-ledger/internal/domain"
	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"go.uber.org/zap"
)

// Job asks for every fee of a student after FromPeriod to be recomputed.
type Job struct {
	StudentID  int64
	HostelID   int64
	FromPeriod domain.Period
}

// RunFunc performs one cascade.
type RunFunc func(ctx context.Context, job Job) error

type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type Stats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Pending   int   `json:"pending"`
}

// Dispatcher runs cascades in the background. Jobs for a student that is
// already queued are merged into the queued job, keeping the earliest period.
type Dispatcher struct {
	run     RunFunc
	logger  *zap.Logger
	opts    Options
	queue   chan int64
	mu      sync.Mutex
	pending map[int64]Job
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewDispatcher(run RunFunc, logger *zap.Logger, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		run:     run,
		logger:  logger,
		opts:    opts,
		queue:   make(chan int64, opts.QueueSize),
		pending: make(map[int64]Job),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.work()
		}()
	}
}

func (d *Dispatcher) work() {
	for {
		select {
		case <-d.ctx.Done():
			d.logger.Info("draining cascades before shutdown", zap.Int("remaining", len(d.queue)))
			for {
				select {
				case studentID := <-d.queue:
					d.process(studentID)
				default:
					return
				}
			}
		case studentID := <-d.queue:
			d.process(studentID)
		}
	}
}

// Submit queues a cascade. It never blocks; when the queue is full or the
// dispatcher is shut down the job is dropped and logged, since any later
// cascade for the student repairs it.
func (d *Dispatcher) Submit(job Job) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.drop(job, "dispatcher shut down, dropping job")
		return
	}
	if queued, ok := d.pending[job.StudentID]; ok {
		if job.FromPeriod.Before(queued.FromPeriod) {
			queued.FromPeriod = job.FromPeriod
		}
		if job.HostelID != 0 {
			queued.HostelID = job.HostelID
		}
		d.pending[job.StudentID] = queued
		d.mu.Unlock()
		return
	}
	d.pending[job.StudentID] = job
	d.mu.Unlock()

	select {
	case d.queue <- job.StudentID:
	default:
		d.mu.Lock()
		delete(d.pending, job.StudentID)
		d.mu.Unlock()
		d.drop(job, "cascade queue full, dropping job")
	}
}

func (d *Dispatcher) drop(job Job, msg string) {
	d.dropped.Add(1)
	d.logger.Warn(msg,
		zap.Int64("student_id", job.StudentID),
		zap.Int64("hostel_id", job.HostelID),
		zap.String("period", job.FromPeriod.String()),
	)
}

func (d *Dispatcher) process(studentID int64) {
	d.mu.Lock()
	job, ok := d.pending[studentID]
	delete(d.pending, studentID)
	d.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
	defer cancel()

	if err := d.run(ctx, job); err != nil {
		d.failed.Add(1)
		d.logger.Error("cascade failed",
			zap.Int64("student_id", job.StudentID),
			zap.Int64("hostel_id", job.HostelID),
			zap.String("period", job.FromPeriod.String()),
			zap.Error(customError.WrapCascadeFailure(job.StudentID, job.FromPeriod.String(), err)),
		)
		return
	}
	d.processed.Add(1)
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	pending := len(d.pending)
	d.mu.Unlock()

	return Stats{
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
		Pending:   pending,
	}
}

// Shutdown stops the workers after the queued cascades have run.
// Jobs submitted afterwards are dropped.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}
