package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

type Prober interface {
	Probe(ctx context.Context, c *domain.Check) domain.Outcome
}

type AuditLog interface {
	Append(checkID string, rec domain.LogRecord) error
}

type Notifier interface {
	Notify(ctx context.Context, c *domain.Check, state domain.State) error
}

// CycleReport counts what one scan did. Skipped covers unreadable and
// malformed records; the error counters cover side effects that failed.
type CycleReport struct {
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`
	Listed      int       `json:"listed"`
	Skipped     int       `json:"skipped"`
	Probed      int       `json:"probed"`
	Up          int       `json:"up"`
	Down        int       `json:"down"`
	Alerts      int       `json:"alerts"`
	StoreErrors int       `json:"storeErrors"`
	LogErrors   int       `json:"logErrors"`
	AlertErrors int       `json:"alertErrors"`
}

type Scanner struct {
	Logger      *zap.Logger
	Store       repo.CheckStore
	Prober      Prober
	Audit       AuditLog
	Alerts      Notifier
	Concurrency int // 0 = unlimited

	now func() time.Time
}

func NewScanner(
	logger *zap.Logger,
	store repo.CheckStore,
	prober Prober,
	audit AuditLog,
	alerts Notifier,
	concurrency int,
) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 0 {
		concurrency = 0
	}
	return &Scanner{
		Logger:      logger,
		Store:       store,
		Prober:      prober,
		Audit:       audit,
		Alerts:      alerts,
		Concurrency: concurrency,
		now:         time.Now,
	}
}

// pipeline is the outcome of one check's read → probe → side effects run.
type pipeline struct {
	skipped  bool
	probed   bool
	state    domain.State
	alerted  bool
	storeErr bool
	logErr   bool
	alertErr bool
}

// RunCycle lists every check and runs each one's pipeline concurrently.
// It returns once all pipelines finished. Nothing here is fatal: failures
// are logged and counted.
func (s *Scanner) RunCycle(ctx context.Context) CycleReport {
	rep := CycleReport{Started: s.now()}

	ids, err := s.Store.List(ctx)
	if err != nil {
		s.Logger.Warn("scanner_list_error", zap.Error(err))
		rep.StoreErrors++
		rep.Finished = s.now()
		return rep
	}
	rep.Listed = len(ids)
	if len(ids) == 0 {
		s.Logger.Info("scanner_no_checks")
		rep.Finished = s.now()
		return rep
	}

	results := make([]pipeline, len(ids))
	var g errgroup.Group
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			results[i] = s.runCheck(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		switch {
		case r.skipped:
			rep.Skipped++
		case r.probed:
			rep.Probed++
			if r.state == domain.StateUp {
				rep.Up++
			} else {
				rep.Down++
			}
		}
		if r.alerted {
			rep.Alerts++
		}
		if r.storeErr {
			rep.StoreErrors++
		}
		if r.logErr {
			rep.LogErrors++
		}
		if r.alertErr {
			rep.AlertErrors++
		}
	}
	rep.Finished = s.now()
	s.Logger.Info("scanner_cycle_done",
		zap.Int("listed", rep.Listed),
		zap.Int("probed", rep.Probed),
		zap.Int("skipped", rep.Skipped),
		zap.Int("up", rep.Up),
		zap.Int("down", rep.Down),
		zap.Int("alerts", rep.Alerts),
		zap.Duration("took", rep.Finished.Sub(rep.Started)),
	)
	return rep
}

func (s *Scanner) runCheck(ctx context.Context, id string) (res pipeline) {
	data, err := s.Store.Read(ctx, id)
	if err != nil {
		s.Logger.Warn("scanner_read_error", zap.String("check_id", id), zap.Error(err))
		return pipeline{skipped: true, storeErr: true}
	}
	c, err := domain.ParseCheck(data)
	if err != nil {
		s.Logger.Warn("scanner_invalid_check", zap.String("check_id", id), zap.Error(err))
		return pipeline{skipped: true}
	}
	if c.ID != id {
		s.Logger.Warn("scanner_invalid_check",
			zap.String("check_id", id),
			zap.String("record_id", c.ID),
			zap.String("reason", "id does not match store key"),
		)
		return pipeline{skipped: true}
	}

	out := s.Prober.Probe(ctx, c)
	if ctx.Err() != nil {
		// shutdown, not the endpoint, ended the probe
		s.Logger.Debug("scanner_probe_abandoned", zap.String("check_id", id))
		return pipeline{skipped: true}
	}
	state, alert := Evaluate(c, out)
	now := domain.MillisOf(s.now())
	res = pipeline{probed: true, state: state}

	s.Logger.Debug("scanner_checked",
		zap.String("check_id", id),
		zap.String("target", c.Target()),
		zap.Int("status", out.ResponseCode),
		zap.String("error", string(out.Error)),
		zap.Int64("latency_ms", out.LatencyMS),
		zap.String("state", string(state)),
		zap.Bool("alert", alert),
	)

	updated := c.Clone()
	updated.State = state
	updated.LastChecked = now
	if err := repo.SaveCheck(ctx, s.Store, updated); err != nil {
		s.Logger.Warn("scanner_update_error", zap.String("check_id", id), zap.Error(err))
		res.storeErr = true
	}

	rec := domain.LogRecord{Check: *c, Outcome: out, State: state, AlertSent: alert, Time: now}
	if err := s.Audit.Append(id, rec); err != nil {
		s.Logger.Warn("scanner_log_error", zap.String("check_id", id), zap.Error(err))
		res.logErr = true
	}

	if alert {
		res.alerted = true
		// the dispatcher logs its own failures
		if err := s.Alerts.Notify(ctx, updated, state); err != nil {
			res.alertErr = true
		}
	}
	return res
}
