package domain

import "github.com/shopspring/decimal"

// Store is the record store contract shared by the flat-file and relational backends.
// Lookups of missing records return nil without an error.
type Store interface {
	CreateTrade(person, product string, quantity int, price decimal.Decimal) (int64, error)
	UpdateTradeStatus(id int64, status TradeStatus) (bool, error)
	GetTrade(id int64) (*Trade, error)
	// ListTrades returns trades newest first. An empty status means all trades.
	ListTrades(status TradeStatus) ([]Trade, error)

	LogMessage(waID, messageType string, content *string, direction Direction) (int64, error)
	// MessageHistory returns at most limit entries for waID, newest first.
	MessageHistory(waID string, limit int) ([]MessageLog, error)

	Close() error
}

// Clearer wipes every trade and message. Only the development CLI holds one.
type Clearer interface {
	ClearAll() error
}
