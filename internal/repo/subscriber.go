package repo

import (
	"context"
	"errors"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"gorm.io/gorm"
)

// SubscriberRepository: получатели уведомлений.
type SubscriberRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Subscriber, error)

	// ListActive возвращает всех незаблокированных подписчиков.
	ListActive(ctx context.Context) ([]model.Subscriber, error)

	// Upsert регистрирует подписчика по адресу; повторный контакт снимает блокировку.
	Upsert(ctx context.Context, address, name string) (*model.Subscriber, error)

	// Unblock снимает флаг блокировки.
	Unblock(ctx context.Context, id int64) error

	// Block помечает подписчика заблокированным и удаляет его подписки вместе
	// с осиротевшими товарами. Идемпотентен: blocked=false, если флаг уже стоял.
	Block(ctx context.Context, id int64) (blocked bool, err error)
}

type subscriberRepo struct {
	db *gorm.DB
}

// NewSubscriberRepository создаёт реализацию репозитория подписчиков.
func NewSubscriberRepository(db *gorm.DB) SubscriberRepository {
	return &subscriberRepo{db: db}
}

func (r *subscriberRepo) GetByID(ctx context.Context, id int64) (*model.Subscriber, error) {
	var s model.Subscriber
	if err := r.db.WithContext(ctx).Take(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriberRepo) ListActive(ctx context.Context) ([]model.Subscriber, error) {
	var subs []model.Subscriber
	err := r.db.WithContext(ctx).
		Where("is_blocked = ?", false).
		Order("id").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriberRepo) Upsert(ctx context.Context, address, name string) (*model.Subscriber, error) {
	var out model.Subscriber
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Take(&out, "address = ?", address).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out = model.Subscriber{Address: address, Name: name}
			return tx.Create(&out).Error
		}
		if err != nil {
			return err
		}
		updates := map[string]any{"is_blocked": false}
		if name != "" {
			updates["name"] = name
			out.Name = name
		}
		out.IsBlocked = false
		return tx.Model(&model.Subscriber{}).Where("id = ?", out.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *subscriberRepo) Unblock(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Subscriber{}).
		Where("id = ?", id).
		Update("is_blocked", false).Error
}

func (r *subscriberRepo) Block(ctx context.Context, id int64) (bool, error) {
	var blocked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Subscriber{}).
			Where("id = ? AND is_blocked = ?", id, false).
			Update("is_blocked", true)
		if res.Error != nil {
			return res.Error
		}
		blocked = res.RowsAffected > 0
		// подписки чистим в любом случае: повторное удаление: no-op
		_, err := removeSubscriberEdges(tx, id)
		return err
	})
	return blocked, err
}
