// Package scheduler запускает периодические задачи сервера:
// перепроверку товаров и ежедневную очистку снятых с продажи.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roylee0704/gron"
	"go.uber.org/zap"

	"github.com/good-news-everyone/discount-monitoring/internal/service"
)

type Rechecker interface {
	RunCycle(ctx context.Context) (service.CycleReport, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepReport, error)
}

type Config struct {
	RecheckInterval time.Duration
	ReclaimInterval time.Duration
	ReclaimAt       string // HH:MM, учитывается только для интервалов от суток
}

type Scheduler struct {
	cfg     Config
	recheck Rechecker
	sweep   Sweeper
	logger  *zap.SugaredLogger

	cron    *gron.Cron
	sweepMu sync.Mutex

	// wg учитывает все запущенные задачи, включая запуски из cron
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func New(recheck Rechecker, sweep Sweeper, cfg Config, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{cfg: cfg, recheck: recheck, sweep: sweep, logger: logger}
}

// Start сразу запускает первый цикл перепроверки и ставит задачи в расписание.
// Задачи получают ctx и прекращают работу при его отмене.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.cfg.RecheckInterval), func() { s.track(func() { s.RunRecheck(ctx) }) })
	s.cron.AddFunc(s.sweepSchedule(), func() { s.track(func() { s.RunSweep(ctx) }) })

	go s.track(func() { s.RunRecheck(ctx) })

	s.cron.Start()
	s.logger.Infow("scheduler started",
		"recheck_interval", s.cfg.RecheckInterval,
		"reclaim_interval", s.cfg.ReclaimInterval,
		"reclaim_at", s.cfg.ReclaimAt,
	)
}

func (s *Scheduler) sweepSchedule() gron.Schedule {
	every := gron.Every(s.cfg.ReclaimInterval)
	if s.cfg.ReclaimInterval >= 24*time.Hour && s.cfg.ReclaimAt != "" {
		return every.At(s.cfg.ReclaimAt)
	}
	return every
}

// track выполняет задачу под учётом wg; после Stop новые задачи не стартуют.
func (s *Scheduler) track(job func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	job()
}

// Stop останавливает расписание и ждёт все идущие задачи.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
	}
	s.wg.Wait()
}

// RunRecheck выполняет один цикл; пересечение с идущим циклом пропускается.
func (s *Scheduler) RunRecheck(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.recheck.RunCycle(ctx)
	switch {
	case errors.Is(err, service.ErrCycleInProgress):
		s.logger.Warnw("recheck skipped: previous cycle still running")
	case err != nil:
		s.logger.Errorw("recheck cycle failed", "error", err)
	default:
		s.logger.Debugw("recheck cycle done", "cycle_id", report.CycleID, "duration", report.Duration)
	}
}

// RunSweep выполняет одну очистку. Параллельные вызовы сериализуются.
func (s *Scheduler) RunSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	s.logger.Infow("reclaim sweep started")
	report, err := s.sweep.Sweep(ctx)
	if err != nil {
		s.logger.Errorw("reclaim sweep failed", "error", err)
		return
	}
	s.logger.Infow("reclaim sweep finished",
		"checked", report.Checked,
		"reclaimed", report.Reclaimed,
		"failed", report.Failed,
	)
}
