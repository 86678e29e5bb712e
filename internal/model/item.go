package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Item: отслеживаемый товар внешнего магазина.
type Item struct {
	ID int64 `gorm:"primaryKey"`

	URL    string `gorm:"not null"`
	URLKey string `gorm:"not null;uniqueIndex"` // lower(url), ключ уникальности без учёта регистра
	Name   string `gorm:"not null"`
	Site   string `gorm:"not null;index"` // тег адаптера сайта

	Currency     string          `gorm:"not null"`
	InitialPrice decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	LowestPrice  decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	CurrentPrice decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	HighestPrice decimal.Decimal `gorm:"type:numeric(10,2);not null"`

	Availability datatypes.JSONSlice[VariantState]

	FirstTrackedAt time.Time `gorm:"not null"`
}

// PricePlaces: точность хранения цен, numeric(10,2).
const PricePlaces = 2

// RoundPrice приводит цену к точности хранения.
func RoundPrice(p decimal.Decimal) decimal.Decimal { return p.Round(PricePlaces) }

// NewItemFromSnapshot собирает новый Item по первому снимку товара.
// Все четыре цены совпадают с ценой снимка, округлённой до копеек.
func NewItemFromSnapshot(url, site string, snap ProductSnapshot, now time.Time) *Item {
	price := RoundPrice(snap.Price)
	return &Item{
		URL:            url,
		URLKey:         URLKey(url),
		Name:           snap.Name,
		Site:           site,
		Currency:       snap.Currency,
		InitialPrice:   price,
		LowestPrice:    price,
		CurrentPrice:   price,
		HighestPrice:   price,
		Availability:   CloneAvailability(snap.Availability),
		FirstTrackedAt: now.UTC(),
	}
}

// BeforeCreate заполняет ключ уникальности, если его не задали явно.
func (i *Item) BeforeCreate(_ *gorm.DB) error {
	if i.URLKey == "" {
		i.URLKey = URLKey(i.URL)
	}
	return nil
}

// ApplyPrice выставляет текущую цену и при необходимости расширяет границы lowest/highest.
func (i *Item) ApplyPrice(price decimal.Decimal) {
	i.CurrentPrice = price
	if price.LessThan(i.LowestPrice) {
		i.LowestPrice = price
	}
	if price.GreaterThan(i.HighestPrice) {
		i.HighestPrice = price
	}
}

// URLKey нормализует URL для поиска без учёта регистра.
func URLKey(url string) string {
	return strings.ToLower(strings.TrimSpace(url))
}

func (i Item) String() string {
	return "Item(id=" + itoa(i.ID) + ", site=" + i.Site + ", url=" + i.URL + ")"
}
