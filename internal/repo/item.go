package repo

import (
	"context"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"gorm.io/gorm"
)

// ItemRepository: доступ к отслеживаемым товарам.
type ItemRepository interface {
	// ListAll возвращает все товары для цикла перепроверки.
	ListAll(ctx context.Context) ([]model.Item, error)

	// ListBySites возвращает товары указанных сайтов (кандидаты на удаление).
	ListBySites(ctx context.Context, sites []string) ([]model.Item, error)

	// GetByID возвращает товар или gorm.ErrRecordNotFound.
	GetByID(ctx context.Context, id int64) (*model.Item, error)

	// FindByURL ищет товар без учёта регистра URL.
	FindByURL(ctx context.Context, url string) (*model.Item, error)

	// Delete удаляет товар вместе со всеми его подписками. Отсутствие товара не ошибка.
	Delete(ctx context.Context, id int64) (bool, error)
}

type itemRepo struct {
	db *gorm.DB
}

// NewItemRepository создаёт реализацию репозитория для Item.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepo{db: db}
}

func (r *itemRepo) ListAll(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := r.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) ListBySites(ctx context.Context, sites []string) ([]model.Item, error) {
	if len(sites) == 0 {
		return []model.Item{}, nil
	}
	var items []model.Item
	err := r.db.WithContext(ctx).
		Where("site IN ?", sites).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepo) GetByID(ctx context.Context, id int64) (*model.Item, error) {
	var it model.Item
	if err := r.db.WithContext(ctx).Take(&it, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) FindByURL(ctx context.Context, url string) (*model.Item, error) {
	var it model.Item
	if err := r.db.WithContext(ctx).Take(&it, "url_key = ?", model.URLKey(url)).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&model.Subscription{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Item{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}
