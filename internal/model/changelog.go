package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Direction: направление изменения цены.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionNone Direction = "NONE"
)

// ResolveDirection сравнивает старую и новую цену.
func ResolveDirection(before, now decimal.Decimal) Direction {
	switch now.Cmp(before) {
	case 1:
		return DirectionUp
	case -1:
		return DirectionDown
	default:
		return DirectionNone
	}
}

// PriceChangeLog: неизменяемая запись об изменении цены. NONE не сохраняется.
type PriceChangeLog struct {
	ID          int64           `gorm:"primaryKey"`
	ItemID      int64           `gorm:"not null;index"` // без FK: история переживает удаление товара
	PriceBefore decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	PriceNow    decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Direction   Direction       `gorm:"type:varchar(8);not null"`
	CheckedAt   time.Time       `gorm:"not null"`
}

// AvailabilityChangeLog: неизменяемая запись об изменении наличия вариантов.
type AvailabilityChangeLog struct {
	ID         int64 `gorm:"primaryKey"`
	ItemID     int64 `gorm:"not null;index"`
	InfoBefore datatypes.JSONSlice[VariantState]
	InfoNow    datatypes.JSONSlice[VariantState]
	CheckedAt  time.Time `gorm:"not null"`
}

// MessageDirection: направление сообщения в журнале переписки.
type MessageDirection string

const (
	MessageInbound  MessageDirection = "INBOUND"
	MessageOutbound MessageDirection = "OUTBOUND"
)

// Message: журнал отправленных подписчикам сообщений.
type Message struct {
	ID           int64            `gorm:"primaryKey"`
	SubscriberID int64            `gorm:"not null;index"`
	Text         string           `gorm:"not null"`
	Direction    MessageDirection `gorm:"type:varchar(8);not null"`
	SentAt       time.Time        `gorm:"not null"`
}

// All возвращает все модели для миграций.
func All() []any {
	return []any{
		&Item{},
		&Subscriber{},
		&Subscription{},
		&PriceChangeLog{},
		&AvailabilityChangeLog{},
		&Message{},
	}
}
