package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
)

const itemGoneText = "This item is no longer available in the store. All notifications for it are turned off."

var hundred = decimal.NewFromInt(100)

// PercentChange = |1 - now/before| * 100, округление half-up до двух знаков.
// Для нулевой старой цены возвращает 100.
func PercentChange(before, now decimal.Decimal) decimal.Decimal {
	if before.IsZero() {
		return hundred.Round(2)
	}
	return decimal.NewFromInt(1).Sub(now.Div(before)).Abs().Mul(hundred).Round(2)
}

// RenderChange собирает текст уведомления: блок цены, блок наличия и ссылку.
// Пустые блоки пропускаются, между блоками пустая строка.
func RenderChange(item model.Item, price *model.PriceChangeLog, variants []model.VariantState) string {
	var sections []string
	if price != nil && price.Direction != model.DirectionNone {
		sections = append(sections, renderPrice(item.Currency, price))
	}
	if len(variants) > 0 {
		lines := make([]string, 0, len(variants))
		for _, v := range variants {
			lines = append(lines, renderVariant(v))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	sections = append(sections, item.URL)
	return strings.Join(sections, "\n\n")
}

// RenderDeletion: сообщение о снятии товара с продажи.
func RenderDeletion(url string) string {
	return itemGoneText + "\n" + url
}

func renderPrice(currency string, p *model.PriceChangeLog) string {
	word := "up"
	if p.Direction == model.DirectionDown {
		word = "down"
	}
	return fmt.Sprintf("Price went %s by %s%%!\nWas: %s %s\nNow: %s %s",
		word,
		PercentChange(p.PriceBefore, p.PriceNow).StringFixed(2),
		p.PriceBefore.StringFixed(2), currency,
		p.PriceNow.StringFixed(2), currency,
	)
}

func renderVariant(v model.VariantState) string {
	if v.Available {
		return "Size " + v.Name + " is now in stock!"
	}
	return "Size " + v.Name + " is no longer in stock!"
}
