package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/good-news-everyone/discount-monitoring/internal/metrics"
	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"github.com/good-news-everyone/discount-monitoring/internal/repo"
	"github.com/good-news-everyone/discount-monitoring/internal/snapshot"
)

// GoneSiteSource: источник снимков, знающий, какие сайты сообщают о снятии товара.
type GoneSiteSource interface {
	snapshot.Source
	GoneSites() []string
}

// DeletionNotifier предупреждает подписчиков об удалении товара.
type DeletionNotifier interface {
	NotifyDeletion(ctx context.Context, item model.Item) DispatchReport
}

// SweepReport: итоги ежедневной очистки.
type SweepReport struct {
	Checked   int
	Reclaimed int
	Failed    int
}

// Reclaimer удаляет товары, снятые с продажи, предварительно уведомив подписчиков.
type Reclaimer struct {
	items        repo.ItemRepository
	source       GoneSiteSource
	notifier     DeletionNotifier
	queue        *GoneQueue
	metrics      metrics.Provider
	logger       *zap.SugaredLogger
	fetchTimeout time.Duration
}

func NewReclaimer(
	items repo.ItemRepository,
	source GoneSiteSource,
	notifier DeletionNotifier,
	queue *GoneQueue,
	m metrics.Provider,
	logger *zap.SugaredLogger,
	fetchTimeout time.Duration,
) *Reclaimer {
	return &Reclaimer{
		items:        items,
		source:       source,
		notifier:     notifier,
		queue:        queue,
		metrics:      m,
		logger:       logger,
		fetchTimeout: fetchTimeout,
	}
}

// Sweep проверяет товары сайтов, умеющих сообщать о снятии. Удаляется только
// то, что подтверждено ErrGone; прочие ошибки считаются временными.
func (r *Reclaimer) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	items, err := r.items.ListBySites(ctx, r.source.GoneSites())
	if err != nil {
		return report, fmt.Errorf("load candidates: %w", err)
	}
	for _, it := range items {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		gone, err := r.confirmGone(ctx, it)
		if err != nil {
			r.logger.Debugw("sweep fetch failed, keeping item", "item_id", it.ID, "error", err)
			continue
		}
		if !gone {
			continue
		}
		if err := r.Reclaim(ctx, it); err != nil {
			report.Failed++
			r.logger.Errorw("failed to reclaim item", "item_id", it.ID, "error", err)
			continue
		}
		report.Reclaimed++
	}
	r.logger.Infow("reclaim sweep finished", "checked", report.Checked, "reclaimed", report.Reclaimed, "failed", report.Failed)
	return report, nil
}

// Run обрабатывает события очереди до отмены контекста.
func (r *Reclaimer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue.Events():
			r.handle(ctx, ev)
		}
	}
}

// handle перепроверяет товар одним запросом: устаревшее событие не должно
// удалить живой товар. Во всех случаях, кроме успешного удаления, товар
// снова можно поставить в очередь.
func (r *Reclaimer) handle(ctx context.Context, ev GoneEvent) {
	it, err := r.items.GetByID(ctx, ev.ItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.queue.Forget(ev.ItemID)
		return
	}
	if err != nil {
		r.queue.Forget(ev.ItemID)
		r.logger.Errorw("failed to load gone item", "item_id", ev.ItemID, "error", err)
		return
	}

	gone, err := r.confirmGone(ctx, *it)
	if err != nil || !gone {
		r.queue.Forget(ev.ItemID)
		r.logger.Infow("gone event not confirmed", "item_id", ev.ItemID, "error", err)
		return
	}
	if err := r.Reclaim(ctx, *it); err != nil {
		r.queue.Forget(ev.ItemID)
		r.logger.Errorw("failed to reclaim item", "item_id", ev.ItemID, "error", err)
	}
}

func (r *Reclaimer) confirmGone(ctx context.Context, it model.Item) (bool, error) {
	fctx := ctx
	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}
	_, err := r.source.Fetch(fctx, it.URL)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, snapshot.ErrGone):
		return true, nil
	default:
		return false, err
	}
}

// Reclaim уведомляет подписчиков и удаляет товар вместе с подписками.
// Порядок важен: рассылка видит подписки до каскадного удаления.
func (r *Reclaimer) Reclaim(ctx context.Context, it model.Item) error {
	rep := r.notifier.NotifyDeletion(ctx, it)
	if _, err := r.items.Delete(ctx, it.ID); err != nil {
		return err
	}
	r.metrics.IncReclaimed()
	r.logger.Infow("item reclaimed", "item_id", it.ID, "url", it.URL, "notified", rep.Sent)
	return nil
}
