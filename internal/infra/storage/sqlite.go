package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trade_relay/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLStore is the relational record store backed by SQLite (pure Go driver).
// IDs come from the engine's auto-increment columns.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens (or creates) the SQLite database at path and migrates the schema
func NewSQLStore(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, domain.NewStorageError("open", fmt.Errorf("failed to create DB directory: %w", err))
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, domain.NewStorageError("open", fmt.Errorf("failed to connect to database: %w", err))
	}

	return newSQLStore(db)
}

func newSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&domain.Trade{}, &domain.MessageLog{}); err != nil {
		return nil, domain.NewStorageError("open", fmt.Errorf("failed to migrate database: %w", err))
	}
	return &SQLStore{db: db}, nil
}

// ======================================================================================
// Trade Operations
// ======================================================================================

// CreateTrade inserts a pending trade and returns its id
func (s *SQLStore) CreateTrade(person, product string, quantity int, price decimal.Decimal) (int64, error) {
	now := time.Now()
	trade := domain.Trade{
		PersonName:  person,
		ProductName: product,
		Quantity:    quantity,
		Price:       price,
		Status:      domain.TradeStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.Create(&trade).Error; err != nil {
		return 0, domain.NewStorageError("create_trade", err)
	}
	return trade.ID, nil
}

// UpdateTradeStatus sets status and updated_at. Returns false if the trade does not exist.
func (s *SQLStore) UpdateTradeStatus(id int64, status domain.TradeStatus) (bool, error) {
	res := s.db.Model(&domain.Trade{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return false, domain.NewStorageError("update_trade_status", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetTrade retrieves a trade by id
func (s *SQLStore) GetTrade(id int64) (*domain.Trade, error) {
	var trade domain.Trade
	err := s.db.First(&trade, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, domain.NewStorageError("get_trade", err)
	}
	return &trade, nil
}

// ListTrades retrieves trades newest first, optionally filtered by status
func (s *SQLStore) ListTrades(status domain.TradeStatus) ([]domain.Trade, error) {
	var trades []domain.Trade
	q := s.db.Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, domain.NewStorageError("list_trades", err)
	}
	return trades, nil
}

// ======================================================================================
// Message Log Operations
// ======================================================================================

// LogMessage appends a message log entry
func (s *SQLStore) LogMessage(waID, messageType string, content *string, direction domain.Direction) (int64, error) {
	entry := domain.MessageLog{
		WAID:        waID,
		MessageType: messageType,
		Content:     content,
		Direction:   direction,
		Status:      domain.MessageStatusSent,
		CreatedAt:   time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return 0, domain.NewStorageError("log_message", err)
	}
	return entry.ID, nil
}

// MessageHistory retrieves the latest messages exchanged with waID
func (s *SQLStore) MessageHistory(waID string, limit int) ([]domain.MessageLog, error) {
	var entries []domain.MessageLog
	err := s.db.Where("wa_id = ?", waID).
		Order("created_at DESC, id DESC").
		Limit(historyLimit(limit)).
		Find(&entries).Error
	if err != nil {
		return nil, domain.NewStorageError("message_history", err)
	}
	return entries, nil
}

// ClearAll deletes every trade and message (development only)
func (s *SQLStore) ClearAll() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM trades").Error; err != nil {
			return domain.NewStorageError("clear_all", err)
		}
		if err := tx.Exec("DELETE FROM messages").Error; err != nil {
			return domain.NewStorageError("clear_all", err)
		}
		return nil
	})
}

// Close releases the underlying connection pool
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
