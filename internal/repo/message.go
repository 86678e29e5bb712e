package repo

import (
	"context"

	"github.com/good-news-everyone/discount-monitoring/internal/model"
	"gorm.io/gorm"
)

// MessageRepository: журнал переписки с подписчиками.
type MessageRepository interface {
	Save(ctx context.Context, m *model.Message) error
	ListBySubscriber(ctx context.Context, subscriberID int64) ([]model.Message, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Save(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *messageRepo) ListBySubscriber(ctx context.Context, subscriberID int64) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("id").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
