package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/good-news-everyone/discount-monitoring/internal/detector"
	"github.com/good-news-everyone/discount-monitoring/internal/metrics"
	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"github.com/good-news-everyone/discount-monitoring/internal/repo"
	"github.com/good-news-everyone/discount-monitoring/internal/snapshot"
)

// ChangeNotifier получает результаты цикла с реальными изменениями.
type ChangeNotifier interface {
	NotifyChanges(ctx context.Context, outcomes []detector.Outcome) DispatchReport
}

// EngineConfig: параметры цикла перепроверки.
type EngineConfig struct {
	Workers      int
	FetchTimeout time.Duration
}

// CycleReport: итоги одного цикла.
type CycleReport struct {
	CycleID  string
	Total    int
	Changed  int
	Failed   int
	Gone     int
	Duration time.Duration
}

// RecheckEngine перепроверяет все товары: снимок, сравнение, сохранение, рассылка.
type RecheckEngine struct {
	items    repo.ItemRepository
	changes  repo.ChangeLogRepository
	source   snapshot.Source
	notifier ChangeNotifier
	gone     *GoneQueue
	metrics  metrics.Provider
	logger   *zap.SugaredLogger
	cfg      EngineConfig
	now      func() time.Time

	running sync.Mutex
}

func NewRecheckEngine(
	items repo.ItemRepository,
	changes repo.ChangeLogRepository,
	source snapshot.Source,
	notifier ChangeNotifier,
	gone *GoneQueue,
	m metrics.Provider,
	logger *zap.SugaredLogger,
	cfg EngineConfig,
) *RecheckEngine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}
	return &RecheckEngine{
		items:    items,
		changes:  changes,
		source:   source,
		notifier: notifier,
		gone:     gone,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RunCycle выполняет один цикл. Пока предыдущий цикл не закончился,
// новый не стартует и возвращает ErrCycleInProgress.
func (e *RecheckEngine) RunCycle(ctx context.Context) (CycleReport, error) {
	if !e.running.TryLock() {
		return CycleReport{}, ErrCycleInProgress
	}
	defer e.running.Unlock()

	start := time.Now()
	report := CycleReport{CycleID: uuid.NewString()}
	log := e.logger.With("cycle_id", report.CycleID)

	items, err := e.items.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("load items: %w", err)
	}
	report.Total = len(items)

	staged := e.fetchAll(ctx, log, items, &report)

	// сохраняем по одной транзакции на товар: цена и наличие вместе или никак
	persisted := make([]detector.Outcome, 0, len(staged))
	for _, out := range staged {
		if !out.NeedsUpdate() {
			continue
		}
		if err := e.changes.ApplyOutcome(ctx, out.After, out.Price, out.Availability); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Infow("item removed during cycle, skipping", "item_id", out.After.ID)
			} else {
				report.Failed++
				log.Errorw("failed to persist item changes", "item_id", out.After.ID, "error", err)
			}
			continue
		}
		if out.Price != nil {
			e.metrics.IncChange(metrics.ChangePrice)
		}
		if out.Availability != nil {
			e.metrics.IncChange(metrics.ChangeAvailability)
		}
		if out.HasChanges() {
			persisted = append(persisted, out)
		}
	}
	report.Changed = len(persisted)

	if len(persisted) > 0 && e.notifier != nil {
		e.notifier.NotifyChanges(ctx, persisted)
	}

	report.Duration = time.Since(start)
	e.metrics.ObserveCycle(report.Duration)
	log.Infow("recheck cycle finished",
		"duration", report.Duration,
		"total", report.Total,
		"changed", report.Changed,
		"failed", report.Failed,
		"gone", report.Gone,
	)
	return report, nil
}

// fetchAll параллельно снимает и сравнивает товары в пуле фиксированного размера.
// Ошибка одного товара не отменяет остальные.
func (e *RecheckEngine) fetchAll(ctx context.Context, log *zap.SugaredLogger, items []model.Item, report *CycleReport) []detector.Outcome {
	results := make([]*detector.Outcome, len(items))
	var failed, gone atomic.Int64

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i := range items {
		i := i
		it := items[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failed.Add(1)
					log.Errorw("panic while checking item", "item_id", it.ID, "panic", r)
				}
			}()

			out, err := e.checkItem(ctx, it)
			switch {
			case err == nil:
				results[i] = &out
			case errors.Is(err, snapshot.ErrGone):
				gone.Add(1)
				if e.gone != nil {
					queued := e.gone.Publish(GoneEvent{ItemID: it.ID, URL: it.URL, Site: it.Site})
					log.Infow("item reported gone", "item_id", it.ID, "url", it.URL, "queued", queued)
				}
			default:
				failed.Add(1)
				e.metrics.IncFetchFailure(it.Site)
				log.Warnw("failed to check item", "item_id", it.ID, "url", it.URL, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Failed += int(failed.Load())
	report.Gone += int(gone.Load())

	out := make([]detector.Outcome, 0, len(items))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (e *RecheckEngine) checkItem(ctx context.Context, item model.Item) (detector.Outcome, error) {
	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()

	snap, err := e.source.Fetch(fctx, item.URL)
	if err != nil {
		return detector.Outcome{}, err
	}
	return detector.Detect(item, snap, e.now()), nil
}
