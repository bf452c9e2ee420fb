package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/auditlog"
)

const (
	DefaultCheckInterval  = time.Minute
	DefaultRotateInterval = 24 * time.Hour
)

type Cycler interface {
	RunCycle(ctx context.Context) CycleReport
}

type Rotator interface {
	Rotate(ctx context.Context) auditlog.RotateReport
}

// Status is a snapshot of the worker for the ops API.
type Status struct {
	Running        bool                   `json:"running"`
	CyclesStarted  int64                  `json:"cyclesStarted"`
	CyclesInFlight int64                  `json:"cyclesInFlight"`
	LastCycle      *CycleReport           `json:"lastCycle,omitempty"`
	LastRotation   *auditlog.RotateReport `json:"lastRotation,omitempty"`
}

// Worker drives two independent timers: probe cycles and log rotation.
//
// A cycle tick never waits for the previous cycle. If probes are still
// outstanding when the interval fires, both cycles run at once against the
// same checks and the store keeps whichever write lands last.
type Worker struct {
	Logger         *zap.Logger
	Cycles         Cycler
	Rotator        Rotator
	CheckInterval  time.Duration
	RotateInterval time.Duration

	running  atomic.Bool
	started  atomic.Int64
	inFlight atomic.Int64

	mu           sync.RWMutex
	lastCycle    *CycleReport
	lastRotation *auditlog.RotateReport
}

func NewWorker(logger *zap.Logger, cycles Cycler, rotator Rotator, checkEvery, rotateEvery time.Duration) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkEvery <= 0 {
		checkEvery = DefaultCheckInterval
	}
	if rotateEvery <= 0 {
		rotateEvery = DefaultRotateInterval
	}
	return &Worker{
		Logger:         logger,
		Cycles:         cycles,
		Rotator:        rotator,
		CheckInterval:  checkEvery,
		RotateInterval: rotateEvery,
	}
}

// Run does one cycle and one rotation right away, then arms both tickers.
// It returns after ctx is cancelled and every in-flight cycle and rotation
// has finished.
func (w *Worker) Run(ctx context.Context) {
	w.running.Store(true)
	defer w.running.Store(false)

	var wg sync.WaitGroup
	w.Logger.Info("worker_started",
		zap.Duration("check_interval", w.CheckInterval),
		zap.Duration("rotate_interval", w.RotateInterval),
	)

	w.startCycle(ctx, &wg)
	w.startRotation(ctx, &wg)

	checks := time.NewTicker(w.CheckInterval)
	defer checks.Stop()
	rotations := time.NewTicker(w.RotateInterval)
	defer rotations.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("worker_stopping", zap.Int64("cycles_in_flight", w.inFlight.Load()))
			wg.Wait()
			w.Logger.Info("worker_stopped")
			return
		case <-checks.C:
			w.startCycle(ctx, &wg)
		case <-rotations.C:
			w.startRotation(ctx, &wg)
		}
	}
}

func (w *Worker) startCycle(ctx context.Context, wg *sync.WaitGroup) {
	n := w.started.Add(1)
	if busy := w.inFlight.Add(1) - 1; busy > 0 {
		w.Logger.Info("worker_cycle_overlap",
			zap.Int64("cycle", n),
			zap.Int64("already_running", busy),
		)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer w.inFlight.Add(-1)
		rep := w.Cycles.RunCycle(ctx)
		w.mu.Lock()
		// overlapping cycles may finish out of order; keep the latest start
		if w.lastCycle == nil || !rep.Started.Before(w.lastCycle.Started) {
			w.lastCycle = &rep
		}
		w.mu.Unlock()
	}()
}

func (w *Worker) startRotation(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		rep := w.Rotator.Rotate(ctx)
		w.Logger.Info("worker_rotation_done",
			zap.Int("logs", rep.Logs),
			zap.Int("archived", rep.Archived),
			zap.Int("failed", rep.Failed),
		)
		w.mu.Lock()
		w.lastRotation = &rep
		w.mu.Unlock()
	}()
}

func (w *Worker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := Status{
		Running:        w.running.Load(),
		CyclesStarted:  w.started.Load(),
		CyclesInFlight: w.inFlight.Load(),
	}
	if w.lastCycle != nil {
		c := *w.lastCycle
		st.LastCycle = &c
	}
	if w.lastRotation != nil {
		r := *w.lastRotation
		st.LastRotation = &r
	}
	return st
}
