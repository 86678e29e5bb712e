package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"github.com/good-news-everyone/discount-monitoring/internal/repo"
	"github.com/good-news-everyone/discount-monitoring/internal/snapshot"
)

// SiteResolver: реестр адаптеров сайтов.
type SiteResolver interface {
	snapshot.Source
	SiteFor(url string) (string, error)
}

// LifecycleService управляет подписками: отслеживание, отписка, фильтры вариантов.
type LifecycleService struct {
	items        repo.ItemRepository
	subs         repo.SubscriptionRepository
	subscribers  repo.SubscriberRepository
	messages     repo.MessageRepository
	sites        SiteResolver
	fetchTimeout time.Duration
	logger       *zap.SugaredLogger
	now          func() time.Time
}

func NewLifecycleService(
	items repo.ItemRepository,
	subs repo.SubscriptionRepository,
	subscribers repo.SubscriberRepository,
	messages repo.MessageRepository,
	sites SiteResolver,
	fetchTimeout time.Duration,
	logger *zap.SugaredLogger,
) *LifecycleService {
	return &LifecycleService{
		items:        items,
		subs:         subs,
		subscribers:  subscribers,
		messages:     messages,
		sites:        sites,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// contactText: запись журнала о входящем контакте подписчика.
const contactText = "/start"

// RegisterSubscriber регистрирует получателя; повторный контакт снимает блокировку
// и попадает в журнал переписки как входящее сообщение.
func (s *LifecycleService) RegisterSubscriber(ctx context.Context, address, name string) (*model.Subscriber, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("subscriber address is empty")
	}
	sub, err := s.subscribers.Upsert(ctx, address, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	msg := &model.Message{
		SubscriberID: sub.ID,
		Text:         contactText,
		Direction:    model.MessageInbound,
		SentAt:       s.now().UTC(),
	}
	if err := s.messages.Save(ctx, msg); err != nil {
		s.logger.Warnw("failed to save inbound message", "subscriber_id", sub.ID, "error", err)
	}
	return sub, nil
}

// Track начинает отслеживать URL для подписчика. Идемпотентен: уже известный
// товар не запрашивается повторно, существующая подписка не дублируется.
func (s *LifecycleService) Track(ctx context.Context, url string, subscriberID int64) (*model.Item, error) {
	url = strings.TrimSpace(url)

	sub, err := s.subscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if sub.IsBlocked {
		if err := s.subscribers.Unblock(ctx, sub.ID); err != nil {
			return nil, fmt.Errorf("unblock subscriber: %w", err)
		}
	}

	candidate, err := s.items.FindByURL(ctx, url)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		candidate, err = s.fetchNew(ctx, url)
	}
	if err != nil {
		return nil, err
	}

	item, created, err := s.subs.Subscribe(ctx, candidate, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Infow("item tracked",
		"subscriber_id", sub.ID,
		"item_id", item.ID,
		"url", item.URL,
		"new_subscription", created,
	)
	return item, nil
}

func (s *LifecycleService) fetchNew(ctx context.Context, url string) (*model.Item, error) {
	site, err := s.sites.SiteFor(url)
	if err != nil {
		return nil, err
	}
	fctx := ctx
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	snap, err := s.sites.Fetch(fctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	return model.NewItemFromSnapshot(url, site, snap, s.now()), nil
}

// Untrack удаляет подписку; товар без подписок удаляется в той же транзакции.
func (s *LifecycleService) Untrack(ctx context.Context, subscriptionID int64) error {
	err := s.subs.Unsubscribe(ctx, subscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSubscriptionNotFound
	}
	if err != nil {
		return err
	}
	s.logger.Infow("subscription removed", "subscription_id", subscriptionID)
	return nil
}

// UntrackAll удаляет все подписки подписчика и осиротевшие товары.
func (s *LifecycleService) UntrackAll(ctx context.Context, subscriberID int64) (int64, error) {
	if _, err := s.subscriber(ctx, subscriberID); err != nil {
		return 0, err
	}
	n, err := s.subs.UnsubscribeAll(ctx, subscriberID)
	if err != nil {
		return 0, err
	}
	s.logger.Infow("all subscriptions removed", "subscriber_id", subscriberID, "count", n)
	return n, nil
}

// ListTracked возвращает подписки с товарами.
func (s *LifecycleService) ListTracked(ctx context.Context, subscriberID int64) ([]model.Subscription, error) {
	if _, err := s.subscriber(ctx, subscriberID); err != nil {
		return nil, err
	}
	return s.subs.ListBySubscriber(ctx, subscriberID)
}

// AddVariant добавляет вариант (размер) в фильтр подписки и возвращает
// отсортированный фильтр целиком.
func (s *LifecycleService) AddVariant(ctx context.Context, subscriptionID int64, variant string) ([]string, error) {
	variant = strings.TrimSpace(variant)
	if variant == "" {
		return nil, ErrEmptyVariant
	}
	filter, err := s.subs.AddVariant(ctx, subscriptionID, variant)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return filter, nil
}

func (s *LifecycleService) subscriber(ctx context.Context, id int64) (*model.Subscriber, error) {
	sub, err := s.subscribers.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriberNotFound
	}
	return sub, err
}
