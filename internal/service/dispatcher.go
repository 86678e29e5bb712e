package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/good-news-everyone/discount-monitoring/internal/detector"
	"github.com/good-news-everyone/discount-monitoring/internal/messenger"
	"github.com/good-news-everyone/discount-monitoring/internal/metrics"
	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"github.com/good-news-everyone/discount-monitoring/internal/repo"
)

// DispatchReport: итоги одной рассылки.
type DispatchReport struct {
	Sent    int
	Skipped int
	Failed  int
	Blocked int
}

// Dispatcher рассылает уведомления подписчикам и блокирует тех,
// кто навсегда отказался от доставки.
type Dispatcher struct {
	subs        repo.SubscriptionRepository
	subscribers repo.SubscriberRepository
	messages    repo.MessageRepository
	channel     messenger.Channel
	metrics     metrics.Provider
	logger      *zap.SugaredLogger
	now         func() time.Time
}

func NewDispatcher(
	subs repo.SubscriptionRepository,
	subscribers repo.SubscriberRepository,
	messages repo.MessageRepository,
	channel messenger.Channel,
	m metrics.Provider,
	logger *zap.SugaredLogger,
) *Dispatcher {
	return &Dispatcher{
		subs:        subs,
		subscribers: subscribers,
		messages:    messages,
		channel:     channel,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// dispatchRun: состояние одной рассылки: кого уже заблокировали в этом проходе.
type dispatchRun struct {
	blocked map[int64]bool
	report  DispatchReport
}

func newDispatchRun() *dispatchRun {
	return &dispatchRun{blocked: make(map[int64]bool)}
}

// NotifyChanges рассылает уведомления по товарам с реальными изменениями.
// Подписка с фильтром вариантов получает сообщение, только если изменилась
// цена или один из её вариантов.
func (d *Dispatcher) NotifyChanges(ctx context.Context, outcomes []detector.Outcome) DispatchReport {
	byItem := make(map[int64]detector.Outcome, len(outcomes))
	ids := make([]int64, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.HasChanges() {
			continue
		}
		if _, dup := byItem[o.After.ID]; !dup {
			ids = append(ids, o.After.ID)
		}
		byItem[o.After.ID] = o
	}
	if len(ids) == 0 {
		return DispatchReport{}
	}

	subs, err := d.subs.ListActiveByItems(ctx, ids)
	if err != nil {
		d.logger.Errorw("failed to resolve subscriptions", "items", len(ids), "error", err)
		return DispatchReport{}
	}

	run := newDispatchRun()
	for _, s := range subs {
		if s.Subscriber == nil {
			continue
		}
		out := byItem[s.ItemID]
		relevant := out.ChangesFor(s.VariantFilter)
		if !out.PriceChanged() && len(relevant) == 0 {
			run.report.Skipped++
			d.metrics.IncNotification(metrics.NotificationSkipped)
			continue
		}
		if run.blocked[s.SubscriberID] {
			run.report.Skipped++
			continue
		}
		text := RenderChange(out.After, out.Price, relevant)
		_ = d.deliver(ctx, run, *s.Subscriber, text)
	}

	d.logger.Infow("change notifications dispatched",
		"items", len(ids),
		"sent", run.report.Sent,
		"skipped", run.report.Skipped,
		"failed", run.report.Failed,
		"blocked", run.report.Blocked,
	)
	return run.report
}

// NotifyDeletion сообщает всем текущим подписчикам товара о его снятии.
// Вызывается до удаления товара и подписок.
func (d *Dispatcher) NotifyDeletion(ctx context.Context, item model.Item) DispatchReport {
	subs, err := d.subs.ListByItem(ctx, item.ID)
	if err != nil {
		d.logger.Errorw("failed to load subscriptions for deletion notice", "item_id", item.ID, "error", err)
		return DispatchReport{}
	}
	run := newDispatchRun()
	text := RenderDeletion(item.URL)
	for _, s := range subs {
		if s.Subscriber == nil || s.Subscriber.IsBlocked || run.blocked[s.SubscriberID] {
			continue
		}
		_ = d.deliver(ctx, run, *s.Subscriber, text)
	}
	return run.report
}

// Broadcast отправляет текст всем незаблокированным подписчикам.
func (d *Dispatcher) Broadcast(ctx context.Context, text string) (DispatchReport, error) {
	if strings.TrimSpace(text) == "" {
		return DispatchReport{}, ErrEmptyMessage
	}
	list, err := d.subscribers.ListActive(ctx)
	if err != nil {
		return DispatchReport{}, fmt.Errorf("list subscribers: %w", err)
	}
	run := newDispatchRun()
	for _, s := range list {
		_ = d.deliver(ctx, run, s, text)
	}
	d.logger.Infow("broadcast finished", "recipients", len(list), "sent", run.report.Sent, "blocked", run.report.Blocked)
	return run.report, nil
}

// NotifyOne отправляет текст одному подписчику. Ошибка доставки возвращается вызывающему.
func (d *Dispatcher) NotifyOne(ctx context.Context, subscriberID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	s, err := d.subscribers.GetByID(ctx, subscriberID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSubscriberNotFound
	}
	if err != nil {
		return err
	}
	if s.IsBlocked {
		return ErrSubscriberBlocked
	}
	err = d.deliver(ctx, newDispatchRun(), *s, text)
	if err != nil && !errors.Is(err, messenger.ErrForbidden) {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return err
}

// deliver отправляет сообщение и разбирает результат:
// успех: запись в журнал, Forbidden: блокировка, прочее: только лог.
func (d *Dispatcher) deliver(ctx context.Context, run *dispatchRun, s model.Subscriber, text string) error {
	err := d.channel.Send(ctx, s.Address, text)
	switch {
	case err == nil:
		run.report.Sent++
		d.metrics.IncNotification(metrics.NotificationSent)
		msg := &model.Message{
			SubscriberID: s.ID,
			Text:         text,
			Direction:    model.MessageOutbound,
			SentAt:       d.now().UTC(),
		}
		if err := d.messages.Save(ctx, msg); err != nil {
			d.logger.Warnw("failed to save outbound message", "subscriber_id", s.ID, "error", err)
		}
		return nil
	case errors.Is(err, messenger.ErrForbidden):
		d.metrics.IncNotification(metrics.NotificationForbidden)
		d.block(ctx, run, s.ID)
		return err
	default:
		run.report.Failed++
		d.metrics.IncNotification(metrics.NotificationFailed)
		d.logger.Warnw("failed to deliver message", "subscriber_id", s.ID, "error", err)
		return err
	}
}

// block выполняется не более одного раза на подписчика за проход; сама
// блокировка в хранилище тоже идемпотентна.
func (d *Dispatcher) block(ctx context.Context, run *dispatchRun, subscriberID int64) {
	if run.blocked[subscriberID] {
		return
	}
	run.blocked[subscriberID] = true

	blocked, err := d.subscribers.Block(ctx, subscriberID)
	if err != nil {
		d.logger.Errorw("failed to block subscriber", "subscriber_id", subscriberID, "error", err)
		return
	}
	if blocked {
		run.report.Blocked++
		d.logger.Warnw("blocked by subscriber, all subscriptions removed", "subscriber_id", subscriberID)
	}
}
