package repo

import (
	"context"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"gorm.io/gorm"
)

// ChangeLogRepository сохраняет результат перепроверки товара и историю изменений.
type ChangeLogRepository interface {
	// ApplyOutcome в одной транзакции обновляет цены и наличие товара и пишет
	// записи журнала (любая из них может быть nil). Если товар уже удалён:
	// gorm.ErrRecordNotFound, и ничего не пишется.
	ApplyOutcome(ctx context.Context, item model.Item, price *model.PriceChangeLog, avail *model.AvailabilityChangeLog) error

	ListPriceChanges(ctx context.Context, itemID int64) ([]model.PriceChangeLog, error)
	ListAvailabilityChanges(ctx context.Context, itemID int64) ([]model.AvailabilityChangeLog, error)
}

type changeLogRepo struct {
	db *gorm.DB
}

// NewChangeLogRepository создаёт реализацию журнала изменений.
func NewChangeLogRepository(db *gorm.DB) ChangeLogRepository {
	return &changeLogRepo{db: db}
}

func (r *changeLogRepo) ApplyOutcome(ctx context.Context, item model.Item, price *model.PriceChangeLog, avail *model.AvailabilityChangeLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Item{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"current_price": item.CurrentPrice,
				"lowest_price":  item.LowestPrice,
				"highest_price": item.HighestPrice,
				"availability":  item.Availability,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if price != nil {
			if err := tx.Create(price).Error; err != nil {
				return err
			}
		}
		if avail != nil {
			if err := tx.Create(avail).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *changeLogRepo) ListPriceChanges(ctx context.Context, itemID int64) ([]model.PriceChangeLog, error) {
	var logs []model.PriceChangeLog
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("id").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *changeLogRepo) ListAvailabilityChanges(ctx context.Context, itemID int64) ([]model.AvailabilityChangeLog, error) {
	var logs []model.AvailabilityChangeLog
	if err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("id").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
