package repo

import (
	"context"
	"errors"
	"sort"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionRepository хранит связи подписчик-товар и следит за тем,
// чтобы товар без подписок не переживал операцию удаления.
type SubscriptionRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Subscription, error)

	// ListBySubscriber возвращает подписки с подгруженным товаром.
	ListBySubscriber(ctx context.Context, subscriberID int64) ([]model.Subscription, error)

	// ListByItem возвращает все подписки товара, включая заблокированных подписчиков.
	ListByItem(ctx context.Context, itemID int64) ([]model.Subscription, error)

	// ListActiveByItems возвращает подписки незаблокированных подписчиков на товары.
	ListActiveByItems(ctx context.Context, itemIDs []int64) ([]model.Subscription, error)

	// Subscribe находит товар по URL (или создаёт из candidate) и создаёт подписку,
	// если её ещё нет. Всё в одной транзакции. created=true, если подписка новая.
	Subscribe(ctx context.Context, candidate *model.Item, subscriberID int64) (item *model.Item, created bool, err error)

	// Unsubscribe удаляет подписку и осиротевший товар. Нет подписки: gorm.ErrRecordNotFound.
	Unsubscribe(ctx context.Context, id int64) error

	// UnsubscribeAll удаляет все подписки подписчика и осиротевшие товары.
	UnsubscribeAll(ctx context.Context, subscriberID int64) (int64, error)

	// AddVariant добавляет вариант в фильтр подписки и возвращает отсортированный фильтр.
	AddVariant(ctx context.Context, id int64, variant string) ([]string, error)
}

type subscriptionRepo struct {
	db *gorm.DB
}

// NewSubscriptionRepository создаёт реализацию репозитория подписок.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	var s model.Subscription
	if err := r.db.WithContext(ctx).Preload("Item").Take(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepo) ListBySubscriber(ctx context.Context, subscriberID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("subscriber_id = ?", subscriberID).
		Order("id").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepo) ListByItem(ctx context.Context, itemID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.WithContext(ctx).
		Preload("Subscriber").
		Where("item_id = ?", itemID).
		Order("id").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepo) ListActiveByItems(ctx context.Context, itemIDs []int64) ([]model.Subscription, error) {
	if len(itemIDs) == 0 {
		return []model.Subscription{}, nil
	}
	var subs []model.Subscription
	err := r.db.WithContext(ctx).
		Joins("JOIN subscribers ON subscribers.id = subscriptions.subscriber_id AND subscribers.is_blocked = ?", false).
		Preload("Subscriber").
		Where("subscriptions.item_id IN ?", itemIDs).
		Order("subscriptions.id").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepo) Subscribe(ctx context.Context, candidate *model.Item, subscriberID int64) (*model.Item, bool, error) {
	var (
		item    *model.Item
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Item
		err := tx.Take(&existing, "url_key = ?", model.URLKey(candidate.URL)).Error
		switch {
		case err == nil:
			item = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			fresh := *candidate
			fresh.ID = 0
			if err := tx.Create(&fresh).Error; err != nil {
				return err
			}
			item = &fresh
		default:
			return err
		}

		sub := model.Subscription{
			ItemID:        item.ID,
			SubscriberID:  subscriberID,
			VariantFilter: datatypes.JSONSlice[string]{},
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "subscriber_id"}},
			DoNothing: true,
		}).Create(&sub)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return item, created, nil
}

func (r *subscriptionRepo) Unsubscribe(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s model.Subscription
		if err := tx.Take(&s, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Subscription{}, "id = ?", id).Error; err != nil {
			return err
		}
		_, err := deleteOrphanItems(tx, []int64{s.ItemID})
		return err
	})
}

func (r *subscriptionRepo) UnsubscribeAll(ctx context.Context, subscriberID int64) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := removeSubscriberEdges(tx, subscriberID)
		removed = n
		return err
	})
	return removed, err
}

func (r *subscriptionRepo) AddVariant(ctx context.Context, id int64, variant string) ([]string, error) {
	var filter []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s model.Subscription
		if err := tx.Take(&s, "id = ?", id).Error; err != nil {
			return err
		}
		filter = append([]string{}, s.VariantFilter...)
		if !s.HasVariant(variant) {
			filter = append(filter, variant)
		}
		sort.Strings(filter)
		return tx.Model(&model.Subscription{}).
			Where("id = ?", id).
			Update("variant_filter", datatypes.JSONSlice[string](filter)).Error
	})
	if err != nil {
		return nil, err
	}
	return filter, nil
}

// removeSubscriberEdges удаляет все подписки подписчика и осиротевшие товары в рамках tx.
func removeSubscriberEdges(tx *gorm.DB, subscriberID int64) (int64, error) {
	var itemIDs []int64
	if err := tx.Model(&model.Subscription{}).
		Where("subscriber_id = ?", subscriberID).
		Pluck("item_id", &itemIDs).Error; err != nil {
		return 0, err
	}
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := tx.Where("subscriber_id = ?", subscriberID).Delete(&model.Subscription{})
	if res.Error != nil {
		return 0, res.Error
	}
	if _, err := deleteOrphanItems(tx, itemIDs); err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}
