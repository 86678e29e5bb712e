package repo

import (
	"strings"
	"testing"
	"time"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB поднимает отдельную in-memory SQLite (modernc.org/sqlite) на каждый тест
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := InitDB("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// хелпер для создания товара с одинаковыми ценами
func mkItem(url, price string) *model.Item {
	p := decimal.RequireFromString(price)
	return &model.Item{
		URL:            url,
		Name:           "Item",
		Site:           "zara",
		Currency:       "RUB",
		InitialPrice:   p,
		LowestPrice:    p,
		CurrentPrice:   p,
		HighestPrice:   p,
		Availability:   []model.VariantState{{Name: "M", Available: false}},
		FirstTrackedAt: time.Now().UTC(),
	}
}

func mkSubscriber(t *testing.T, db *gorm.DB, address string) *model.Subscriber {
	t.Helper()
	s := &model.Subscriber{Address: address, Name: address}
	require.NoError(t, db.Create(s).Error)
	return s
}

func countRows(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestInitDB_EmptyDSN(t *testing.T) {
	_, err := InitDB("  ")
	require.ErrorIs(t, err, ErrEmptyDSN)
}
