// Package snapshot получает нормализованные снимки карточек товаров с сайтов магазинов.
package snapshot

import (
	"context"
	"errors"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
)

var (
	// ErrNotFound: страница товара не найдена (404).
	ErrNotFound = errors.New("product page not found")
	// ErrTemporarilyUnavailable: сетевой сбой, троттлинг или 5xx; повторяем в следующем цикле.
	ErrTemporarilyUnavailable = errors.New("product page temporarily unavailable")
	// ErrGone: сайт подтвердил, что товар снят с продажи навсегда (410).
	ErrGone = errors.New("product permanently removed")
	// ErrUnsupportedSite: для хоста URL нет адаптера.
	ErrUnsupportedSite = errors.New("unsupported site")
	// ErrNoProduct: на странице нет разметки товара.
	ErrNoProduct = errors.New("no product markup on page")
)

// Source возвращает снимок товара по URL.
type Source interface {
	Fetch(ctx context.Context, url string) (model.ProductSnapshot, error)
}

// SourceFunc позволяет использовать функцию как Source.
type SourceFunc func(ctx context.Context, url string) (model.ProductSnapshot, error)

func (f SourceFunc) Fetch(ctx context.Context, url string) (model.ProductSnapshot, error) {
	return f(ctx, url)
}
