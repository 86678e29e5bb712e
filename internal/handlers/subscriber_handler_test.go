package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/good-news-everyone/discount-monitoring/internal/handlers"
)

func TestAuth_RequiredForAPI(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.doAs(t, "", http.MethodGet, "/api/sites", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.doAs(t, "bogus", http.MethodGet, "/api/sites", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// health и metrics доступны без токена
	rr = ts.doAs(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = ts.doAs(t, "", http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code) // метрики выключены
}

func TestSites(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodGet, "/api/sites", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"www.zara.com"}, decodeBody[handlers.SitesResponse](t, rr).Hosts)
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	s := ts.register(t, "100")
	assert.Equal(t, "100", s.Address)
	assert.False(t, s.IsBlocked)

	// повторная регистрация возвращает того же подписчика
	again := ts.register(t, "100")
	assert.Equal(t, s.ID, again.ID)

	rr := ts.do(t, http.MethodPost, "/api/subscribers", handlers.RegisterRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTrackFlow(t *testing.T) {
	ts := newTestServer(t)
	s := ts.register(t, "100")
	itemsPath := fmt.Sprintf("/api/subscribers/%d/items", s.ID)

	rr := ts.do(t, http.MethodPost, itemsPath, handlers.TrackRequest{URL: urlCoat})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	item := decodeBody[handlers.ItemDTO](t, rr)
	assert.Equal(t, "10.00", item.CurrentPrice)
	assert.Equal(t, "10.00", item.LowestPrice)
	assert.Equal(t, "zara", item.Site)
	assert.Equal(t, []handlers.VariantDTO{{Name: "M", Available: false}}, item.Availability)

	// повтор идемпотентен и не ходит на сайт
	rr = ts.do(t, http.MethodPost, itemsPath, handlers.TrackRequest{URL: urlCoat})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, item.ID, decodeBody[handlers.ItemDTO](t, rr).ID)
	assert.Equal(t, int32(1), ts.fetches.Load())

	rr = ts.do(t, http.MethodGet, itemsPath, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	subs := decodeBody[[]handlers.SubscriptionDTO](t, rr)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].Item)
	assert.Equal(t, item.ID, subs[0].Item.ID)
	assert.Empty(t, subs[0].Variants)

	variantsPath := fmt.Sprintf("/api/subscriptions/%d/variants", subs[0].ID)
	rr = ts.do(t, http.MethodPost, variantsPath, handlers.VariantRequest{Variant: "M"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"M"}, decodeBody[handlers.VariantsResponse](t, rr).Variants)

	rr = ts.do(t, http.MethodPost, variantsPath, handlers.VariantRequest{Variant: " "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	subPath := fmt.Sprintf("/api/subscriptions/%d", subs[0].ID)
	rr = ts.do(t, http.MethodDelete, subPath, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.do(t, http.MethodDelete, subPath, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, http.MethodGet, itemsPath, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[[]handlers.SubscriptionDTO](t, rr))
}

func TestUntrackAll(t *testing.T) {
	ts := newTestServer(t)
	s := ts.register(t, "100")
	itemsPath := fmt.Sprintf("/api/subscribers/%d/items", s.ID)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, itemsPath, handlers.TrackRequest{URL: urlCoat}).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, itemsPath, handlers.TrackRequest{URL: "https://www.zara.com/hat.html"}).Code)

	rr := ts.do(t, http.MethodDelete, itemsPath, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(2), decodeBody[handlers.UntrackAllResponse](t, rr).Removed)

	rr = ts.do(t, http.MethodDelete, "/api/subscribers/999/items", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTrack_Errors(t *testing.T) {
	ts := newTestServer(t)
	s := ts.register(t, "100")
	itemsPath := fmt.Sprintf("/api/subscribers/%d/items", s.ID)

	cases := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"unknown subscriber", "/api/subscribers/999/items", handlers.TrackRequest{URL: urlCoat}, http.StatusNotFound},
		{"bad id", "/api/subscribers/abc/items", handlers.TrackRequest{URL: urlCoat}, http.StatusBadRequest},
		{"not a url", itemsPath, handlers.TrackRequest{URL: "coat"}, http.StatusBadRequest},
		{"unsupported site", itemsPath, handlers.TrackRequest{URL: "https://shop.example.com/x"}, http.StatusBadRequest},
		{"gone", itemsPath, handlers.TrackRequest{URL: urlGone}, http.StatusUnprocessableEntity},
		{"site unavailable", itemsPath, handlers.TrackRequest{URL: urlFlaky}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
		})
	}
}
