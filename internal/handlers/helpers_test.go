package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/good-news-everyone/discount-monitoring/internal/config"
	"github.com/good-news-everyone/discount-monitoring/internal/handlers"
	"github.com/good-news-everyone/discount-monitoring/internal/messenger"
	"github.com/good-news-everyone/discount-monitoring/internal/metrics"
	"github.com/good-news-everyone/discount-monitoring/internal/middleware"
	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"github.com/good-news-everyone/discount-monitoring/internal/repo"
	"github.com/good-news-everyone/discount-monitoring/internal/service"
	"github.com/good-news-everyone/discount-monitoring/internal/snapshot"
)

const testSecret = "test-secret"

const (
	urlCoat  = "https://www.zara.com/coat.html"
	urlGone  = "https://www.zara.com/gone.html"
	urlFlaky = "https://www.zara.com/flaky.html"
)

// fakeChannel запоминает отправленное; адреса из forbidden отвечают ErrForbidden.
type fakeChannel struct {
	mu        sync.Mutex
	sent      map[string][]string
	forbidden map[string]bool
}

func (c *fakeChannel) Send(_ context.Context, address, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.forbidden[address] {
		return messenger.ErrForbidden
	}
	c.sent[address] = append(c.sent[address], text)
	return nil
}

func (c *fakeChannel) messages(address string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent[address]...)
}

type testServer struct {
	router  http.Handler
	token   string
	channel *fakeChannel
	fetches atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repo.InitDB("file:h_" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	ts := &testServer{channel: &fakeChannel{sent: map[string][]string{}, forbidden: map[string]bool{}}}

	source := snapshot.SourceFunc(func(_ context.Context, url string) (model.ProductSnapshot, error) {
		ts.fetches.Add(1)
		switch url {
		case urlGone:
			return model.ProductSnapshot{}, snapshot.ErrGone
		case urlFlaky:
			return model.ProductSnapshot{}, snapshot.ErrTemporarilyUnavailable
		}
		return model.ProductSnapshot{
			Name:         "Coat",
			Price:        decimal.RequireFromString("10"),
			Currency:     "RUB",
			Availability: []model.VariantState{{Name: "M", Available: false}},
		}, nil
	})
	registry := snapshot.NewRegistry()
	registry.Register(snapshot.Adapter{Tag: "zara", Source: source, Hosts: []string{"www.zara.com"}, ReportsGone: true})

	logger := zap.NewNop().Sugar()
	middleware.SetLogger(logger)
	m := metrics.New(false)

	items := repo.NewItemRepository(db)
	subs := repo.NewSubscriptionRepository(db)
	subscribers := repo.NewSubscriberRepository(db)
	messages := repo.NewMessageRepository(db)

	lifecycle := service.NewLifecycleService(items, subs, subscribers, messages, registry, time.Second, logger)
	dispatcher := service.NewDispatcher(subs, subscribers, messages, ts.channel, m, logger)

	h := handlers.NewHandler(lifecycle, dispatcher, registry, m, logger, &config.Config{AuthSecret: testSecret})
	ts.router = h.Router

	ts.token, err = middleware.IssueToken(testSecret, "admin", time.Hour)
	require.NoError(t, err)
	return ts
}

// do выполняет запрос с токеном оператора.
func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doAs(t, ts.token, method, path, body)
}

func (ts *testServer) doAs(t *testing.T, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (ts *testServer) register(t *testing.T, address string) handlers.SubscriberDTO {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/api/subscribers", handlers.RegisterRequest{Address: address, Name: "user " + address})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decodeBody[handlers.SubscriberDTO](t, rr)
}
