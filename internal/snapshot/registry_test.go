package snapshot

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
)

func fixedSource(name string) Source {
	return SourceFunc(func(ctx context.Context, url string) (model.ProductSnapshot, error) {
		return model.ProductSnapshot{Name: name, Price: decimal.NewFromInt(1), Currency: "RUB"}, nil
	})
}

func TestRegistry_ResolveByHost(t *testing.T) {
	r := NewRegistry()
	r.Register(Adapter{Tag: "zara", Source: fixedSource("zara"), Hosts: []string{"www.zara.com"}, ReportsGone: true})
	r.Register(Adapter{Tag: "hm", Source: fixedSource("hm"), Hosts: []string{"www2.hm.com"}})

	tag, err := r.SiteFor("https://WWW.ZARA.COM/ru/ru/coat-p1.html?v1=2")
	require.NoError(t, err)
	assert.Equal(t, "zara", tag)

	snap, err := r.Fetch(context.Background(), "https://www2.hm.com/ru_ru/productpage.1.html")
	require.NoError(t, err)
	assert.Equal(t, "hm", snap.Name)

	_, err = r.SiteFor("https://example.com/x")
	assert.ErrorIs(t, err, ErrUnsupportedSite)
	_, err = r.Fetch(context.Background(), "not a url")
	assert.ErrorIs(t, err, ErrUnsupportedSite)

	assert.True(t, r.ReportsGone("zara"))
	assert.False(t, r.ReportsGone("hm"))
	assert.False(t, r.ReportsGone("unknown"))
	assert.Equal(t, []string{"zara"}, r.GoneSites())
	assert.Equal(t, []string{"www.zara.com", "www2.hm.com"}, r.Hosts())
}

func TestRegistry_ReRegisterReplacesHosts(t *testing.T) {
	r := NewRegistry()
	r.Register(Adapter{Tag: "zara", Source: fixedSource("a"), Hosts: []string{"old.zara.com"}})
	r.Register(Adapter{Tag: "zara", Source: fixedSource("b"), Hosts: []string{"www.zara.com"}})

	_, err := r.SiteFor("https://old.zara.com/x")
	assert.ErrorIs(t, err, ErrUnsupportedSite)
	assert.Equal(t, []string{"www.zara.com"}, r.Hosts())
}
