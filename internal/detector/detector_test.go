package detector

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// хелпер для товара с одинаковыми ценами
func mkItem(price string, vars ...model.VariantState) model.Item {
	p := dec(price)
	return model.Item{
		ID:           1,
		URL:          "https://www.zara.com/item-1.html",
		Currency:     "RUB",
		InitialPrice: p,
		LowestPrice:  p,
		CurrentPrice: p,
		HighestPrice: p,
		Availability: vars,
	}
}

func snap(price string, vars ...model.VariantState) model.ProductSnapshot {
	return model.ProductSnapshot{Name: "Coat", Price: dec(price), Currency: "RUB", Availability: vars}
}

func TestDetect_SamePriceNoRecord(t *testing.T) {
	it := mkItem("10")
	out := Detect(it, snap("10.00"), time.Now())

	assert.Nil(t, out.Price)
	assert.False(t, out.HasChanges())
	assert.False(t, out.NeedsUpdate())
	assert.True(t, out.After.LowestPrice.Equal(dec("10")))
	assert.True(t, out.After.HighestPrice.Equal(dec("10")))
}

func TestDetect_PriceDrop(t *testing.T) {
	it := mkItem("10")
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	out := Detect(it, snap("1"), now)

	require.NotNil(t, out.Price)
	assert.Equal(t, model.DirectionDown, out.Price.Direction)
	assert.True(t, out.Price.PriceBefore.Equal(dec("10")))
	assert.True(t, out.Price.PriceNow.Equal(dec("1")))
	assert.Equal(t, now, out.Price.CheckedAt)

	assert.Equal(t, "1.00", out.After.CurrentPrice.StringFixed(2))
	assert.Equal(t, "1.00", out.After.LowestPrice.StringFixed(2))
	assert.Equal(t, "10.00", out.After.HighestPrice.StringFixed(2))
	// исходный товар не меняется
	assert.Equal(t, "10.00", out.Before.CurrentPrice.StringFixed(2))
}

func TestDetect_PriceRiseExtendsHighest(t *testing.T) {
	out := Detect(mkItem("10"), snap("12.5"), time.Now())
	require.NotNil(t, out.Price)
	assert.Equal(t, model.DirectionUp, out.Price.Direction)
	assert.Equal(t, "12.50", out.After.HighestPrice.StringFixed(2))
	assert.Equal(t, "10.00", out.After.LowestPrice.StringFixed(2))
}

func TestDetect_AvailabilityToggle(t *testing.T) {
	it := mkItem("10", model.VariantState{Name: "M", Available: false})
	out := Detect(it, snap("10", model.VariantState{Name: "M", Available: true}), time.Now())

	assert.Nil(t, out.Price)
	require.NotNil(t, out.Availability)
	assert.Equal(t, []model.VariantState{{Name: "M", Available: true}}, out.Changed)
	assert.Equal(t, []model.VariantState{{Name: "M", Available: false}}, []model.VariantState(out.Availability.InfoBefore))
	assert.Equal(t, []model.VariantState{{Name: "M", Available: true}}, []model.VariantState(out.Availability.InfoNow))
	assert.True(t, out.NeedsUpdate())
}

func TestDetect_VariantsOnlyOnOneSideIgnored(t *testing.T) {
	it := mkItem("10", model.VariantState{Name: "M", Available: true})
	out := Detect(it, snap("10",
		model.VariantState{Name: "M", Available: true},
		model.VariantState{Name: "XL", Available: true},
	), time.Now())

	assert.Nil(t, out.Availability)
	assert.Empty(t, out.Changed)
	assert.False(t, out.HasChanges())
	// состав вариантов поменялся: товар всё равно надо сохранить
	assert.True(t, out.NeedsUpdate())
	assert.Len(t, out.After.Availability, 2)
}

func TestOutcome_ChangesFor(t *testing.T) {
	it := mkItem("10",
		model.VariantState{Name: "S", Available: false},
		model.VariantState{Name: "M", Available: false},
	)
	out := Detect(it, snap("10",
		model.VariantState{Name: "S", Available: true},
		model.VariantState{Name: "M", Available: true},
	), time.Now())

	t.Run("empty filter returns all", func(t *testing.T) {
		assert.Len(t, out.ChangesFor(nil), 2)
	})
	t.Run("filter keeps its own order", func(t *testing.T) {
		got := out.ChangesFor([]string{"M", "S"})
		require.Len(t, got, 2)
		assert.Equal(t, "M", got[0].Name)
		assert.Equal(t, "S", got[1].Name)
	})
	t.Run("absent variant yields nothing", func(t *testing.T) {
		assert.Empty(t, out.ChangesFor([]string{"L"}))
	})
}

// Инвариант границ: lowest <= current <= highest и lowest <= initial <= highest
func TestDetect_PriceBoundsInvariant(t *testing.T) {
	it := mkItem("10")
	for _, p := range []string{"7", "15", "3.33", "10", "99.99", "0.5", "42"} {
		out := Detect(it, snap(p), time.Now())
		it = out.After
		assert.True(t, it.LowestPrice.LessThanOrEqual(it.CurrentPrice), "lowest <= current at %s", p)
		assert.True(t, it.CurrentPrice.LessThanOrEqual(it.HighestPrice), "current <= highest at %s", p)
		assert.True(t, it.LowestPrice.LessThanOrEqual(it.InitialPrice), "lowest <= initial at %s", p)
		assert.True(t, it.InitialPrice.LessThanOrEqual(it.HighestPrice), "initial <= highest at %s", p)
	}
	assert.Equal(t, "0.50", it.LowestPrice.StringFixed(2))
	assert.Equal(t, "99.99", it.HighestPrice.StringFixed(2))
}

func TestDetect_SubCentPriceRoundedLikeStorage(t *testing.T) {
	// 9.999 хранится как 10.00: повторная проверка не должна давать изменений
	first := model.NewItemFromSnapshot("https://www.zara.com/a.html", "zara", snap("9.999"), time.Now())
	assert.Equal(t, "10", first.CurrentPrice.String())

	out := Detect(*first, snap("9.999"), time.Now())
	assert.Nil(t, out.Price)
	assert.False(t, out.HasChanges())

	out = Detect(mkItem("10"), snap("9.994"), time.Now())
	require.NotNil(t, out.Price)
	assert.Equal(t, model.DirectionDown, out.Price.Direction)
	assert.Equal(t, "9.99", out.Price.PriceNow.String())
	assert.Equal(t, "9.99", out.After.LowestPrice.String())
}
