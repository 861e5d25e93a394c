package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus is the approval state of a trade
type TradeStatus string

const (
	TradeStatusPending  TradeStatus = "pending"
	TradeStatusApproved TradeStatus = "approved"
	TradeStatusRejected TradeStatus = "rejected"
)

// ParseTradeStatus validates a status string. Empty input is rejected.
func ParseTradeStatus(s string) (TradeStatus, error) {
	switch st := TradeStatus(s); st {
	case TradeStatusPending, TradeStatusApproved, TradeStatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Trade represents a trade request raised through the menu flow or the order form
type Trade struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PersonName  string          `gorm:"not null" json:"person_name"`
	ProductName string          `gorm:"not null" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:text;not null" json:"price"`
	Status      TradeStatus     `gorm:"index;default:pending" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Direction tells whether a logged message was received or sent
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MessageLog is an append-only record of one WhatsApp message
type MessageLog struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WAID        string    `gorm:"column:wa_id;index;not null" json:"wa_id"`
	MessageType string    `gorm:"not null" json:"message_type"`
	Content     *string   `json:"message_content"`
	Direction   Direction `gorm:"not null" json:"direction"`
	Status      string    `gorm:"default:sent" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName keeps the table name used by earlier deployments
func (MessageLog) TableName() string {
	return "messages"
}

// MessageStatusSent is the default status of a logged message
const MessageStatusSent = "sent"
