package model

import (
	"time"

	"gorm.io/datatypes"
)

// Subscriber: получатель уведомлений (чат во внешнем мессенджере).
type Subscriber struct {
	ID        int64  `gorm:"primaryKey"`
	Address   string `gorm:"not null;uniqueIndex"` // chat id
	Name      string
	IsBlocked bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Subscription: связь подписчика и товара. Пара (item, subscriber) уникальна.
type Subscription struct {
	ID           int64 `gorm:"primaryKey"`
	ItemID       int64 `gorm:"not null;uniqueIndex:idx_subscription_pair"`
	SubscriberID int64 `gorm:"not null;uniqueIndex:idx_subscription_pair;index"`

	// Связи
	Item       *Item       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Subscriber *Subscriber `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Пустой фильтр означает «все варианты».
	VariantFilter datatypes.JSONSlice[string]

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// HasVariant сообщает, есть ли вариант в фильтре подписки.
func (s Subscription) HasVariant(name string) bool {
	for _, v := range s.VariantFilter {
		if v == name {
			return true
		}
	}
	return false
}
