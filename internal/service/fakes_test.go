package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra/storage"
	"trade_relay/internal/infra/whatsapp"

	"github.com/shopspring/decimal"
)

// recordingSender captures every outbound message and returns err for each send.
type recordingSender struct {
	mu   sync.Mutex
	sent []*whatsapp.OutboundMessage
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg *whatsapp.OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) only(t *testing.T) *whatsapp.OutboundMessage {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) != 1 {
		t.Fatalf("Expected exactly 1 outbound message, got %d", len(s.sent))
	}
	return s.sent[0]
}

func newTestStore(t *testing.T) *storage.JSONStore {
	t.Helper()
	s, err := storage.NewJSONStore(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	return s
}

var errDiskFull = errors.New("disk full")

// brokenStore fails every trade operation with a storage fault.
type brokenStore struct {
	domain.Store
}

func (brokenStore) CreateTrade(string, string, int, decimal.Decimal) (int64, error) {
	return 0, domain.NewStorageError("create_trade", errDiskFull)
}

func (brokenStore) UpdateTradeStatus(int64, domain.TradeStatus) (bool, error) {
	return false, domain.NewStorageError("update_trade_status", errDiskFull)
}

func (brokenStore) GetTrade(int64) (*domain.Trade, error) {
	return nil, domain.NewStorageError("get_trade", errDiskFull)
}

func (brokenStore) ListTrades(domain.TradeStatus) ([]domain.Trade, error) {
	return nil, domain.NewStorageError("list_trades", errDiskFull)
}

func (brokenStore) LogMessage(string, string, *string, domain.Direction) (int64, error) {
	return 0, domain.NewStorageError("log_message", errDiskFull)
}
