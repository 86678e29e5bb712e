package model

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// VariantState: наличие одного варианта товара (например, размера).
type VariantState struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// ProductSnapshot: нормализованный снимок карточки товара, который отдаёт адаптер сайта.
type ProductSnapshot struct {
	Name         string
	Price        decimal.Decimal
	Currency     string
	Availability []VariantState
}

// CloneAvailability возвращает независимую копию списка вариантов.
func CloneAvailability(src []VariantState) []VariantState {
	if src == nil {
		return nil
	}
	out := make([]VariantState, len(src))
	copy(out, src)
	return out
}

// SameAvailability сравнивает два списка вариантов с учётом порядка.
func SameAvailability(a, b []VariantState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
