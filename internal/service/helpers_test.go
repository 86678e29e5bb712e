package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/good-news-everyone/discount-monitoring/internal/messenger"
	"github.com/good-news-everyone/discount-monitoring/internal/metrics"
	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"github.com/good-news-everyone/discount-monitoring/internal/repo"
	"github.com/good-news-everyone/discount-monitoring/internal/snapshot"
)

// мок для реестра сайтов (snapshot.Source + SiteFor + GoneSites)
type mockSites struct{ mock.Mock }

func (m *mockSites) Fetch(ctx context.Context, url string) (model.ProductSnapshot, error) {
	args := m.Called(ctx, url)
	if fn, ok := args.Get(0).(func() model.ProductSnapshot); ok {
		return fn(), args.Error(1)
	}
	return args.Get(0).(model.ProductSnapshot), args.Error(1)
}

func (m *mockSites) SiteFor(url string) (string, error) {
	args := m.Called(url)
	return args.String(0), args.Error(1)
}

func (m *mockSites) GoneSites() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

var (
	_ SiteResolver    = (*mockSites)(nil)
	_ GoneSiteSource  = (*mockSites)(nil)
	_ snapshot.Source = (*mockSites)(nil)
)

// мок для messenger.Channel
type mockChannel struct{ mock.Mock }

func (m *mockChannel) Send(ctx context.Context, address, text string) error {
	return m.Called(ctx, address, text).Error(0)
}

var _ messenger.Channel = (*mockChannel)(nil)

// testEnv: репозитории поверх отдельной in-memory SQLite.
type testEnv struct {
	db          *gorm.DB
	items       repo.ItemRepository
	subs        repo.SubscriptionRepository
	subscribers repo.SubscriberRepository
	changes     repo.ChangeLogRepository
	messages    repo.MessageRepository
	logger      *zap.SugaredLogger
	metrics     metrics.Provider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repo.InitDB("file:svc_" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testEnv{
		db:          db,
		items:       repo.NewItemRepository(db),
		subs:        repo.NewSubscriptionRepository(db),
		subscribers: repo.NewSubscriberRepository(db),
		changes:     repo.NewChangeLogRepository(db),
		messages:    repo.NewMessageRepository(db),
		logger:      zap.NewNop().Sugar(),
		metrics:     metrics.New(false),
	}
}

func (e *testEnv) dispatcher(ch messenger.Channel) *Dispatcher {
	return NewDispatcher(e.subs, e.subscribers, e.messages, ch, e.metrics, e.logger)
}

func (e *testEnv) subscriber(t *testing.T, address string) *model.Subscriber {
	t.Helper()
	s, err := e.subscribers.Upsert(context.Background(), address, "user "+address)
	require.NoError(t, err)
	return s
}

// track подписывает подписчика на товар, минуя загрузку снимка
func (e *testEnv) track(t *testing.T, it *model.Item, subscriberID int64) *model.Item {
	t.Helper()
	got, _, err := e.subs.Subscribe(context.Background(), it, subscriberID)
	require.NoError(t, err)
	return got
}

func (e *testEnv) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mkItem(url, price string, vars ...model.VariantState) *model.Item {
	p := dec(price)
	return &model.Item{
		URL:            url,
		Name:           "Item",
		Site:           "zara",
		Currency:       "RUB",
		InitialPrice:   p,
		LowestPrice:    p,
		CurrentPrice:   p,
		HighestPrice:   p,
		Availability:   vars,
		FirstTrackedAt: time.Now().UTC(),
	}
}

func snap(price string, vars ...model.VariantState) model.ProductSnapshot {
	return model.ProductSnapshot{Name: "Item", Price: dec(price), Currency: "RUB", Availability: vars}
}
