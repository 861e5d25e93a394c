package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"trade_relay/internal/domain"

	"github.com/shopspring/decimal"
)

// document is the on-disk layout of the flat-file store.
// The id counters are persisted so ids never repeat, even after a clear.
type document struct {
	NextTradeID   int64               `json:"next_trade_id"`
	NextMessageID int64               `json:"next_message_id"`
	Trades        []domain.Trade      `json:"trades"`
	Messages      []domain.MessageLog `json:"messages"`
}

// JSONStore keeps every record in a single JSON document.
// Each write rewrites the whole file; the last writer wins across processes.
type JSONStore struct {
	path string
	mu   sync.Mutex
	doc  document
	now  func() time.Time
}

// NewJSONStore loads the document at path, creating it when absent
func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, domain.NewStorageError("open", fmt.Errorf("ensure data dir: %w", err))
	}

	s := &JSONStore{path: path, now: time.Now}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.doc = emptyDocument()
		return s.save()
	}
	if err != nil {
		return domain.NewStorageError("load", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.NewStorageError("load", fmt.Errorf("decode %s: %w", s.path, err))
	}
	repairCounters(&doc)
	s.doc = doc
	return nil
}

func emptyDocument() document {
	return document{
		NextTradeID:   1,
		NextMessageID: 1,
		Trades:        []domain.Trade{},
		Messages:      []domain.MessageLog{},
	}
}

// repairCounters makes files written without counters safe to append to.
func repairCounters(doc *document) {
	if doc.Trades == nil {
		doc.Trades = []domain.Trade{}
	}
	if doc.Messages == nil {
		doc.Messages = []domain.MessageLog{}
	}
	for _, t := range doc.Trades {
		if t.ID >= doc.NextTradeID {
			doc.NextTradeID = t.ID + 1
		}
	}
	for _, m := range doc.Messages {
		if m.ID >= doc.NextMessageID {
			doc.NextMessageID = m.ID + 1
		}
	}
	if doc.NextTradeID < 1 {
		doc.NextTradeID = 1
	}
	if doc.NextMessageID < 1 {
		doc.NextMessageID = 1
	}
}

// save rewrites the document through a temp file so a crash never leaves half a file.
// Must be called with lock held (or before the store is shared).
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return domain.NewStorageError("save", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return domain.NewStorageError("save", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return domain.NewStorageError("save", err)
	}
	return nil
}

// CreateTrade appends a pending trade and returns its id
func (s *JSONStore) CreateTrade(person, product string, quantity int, price decimal.Decimal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	trade := domain.Trade{
		ID:          s.doc.NextTradeID,
		PersonName:  person,
		ProductName: product,
		Quantity:    quantity,
		Price:       price,
		Status:      domain.TradeStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	prev := s.doc
	s.doc.Trades = append(s.doc.Trades, trade)
	s.doc.NextTradeID++
	if err := s.save(); err != nil {
		s.doc = prev
		return 0, err
	}
	return trade.ID, nil
}

// UpdateTradeStatus sets status and updated_at. Returns false if the trade does not exist.
func (s *JSONStore) UpdateTradeStatus(id int64, status domain.TradeStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.doc.Trades {
		if s.doc.Trades[i].ID != id {
			continue
		}
		prev := s.doc.Trades[i]
		s.doc.Trades[i].Status = status
		s.doc.Trades[i].UpdatedAt = s.now()
		if err := s.save(); err != nil {
			s.doc.Trades[i] = prev
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// GetTrade retrieves a trade by id
func (s *JSONStore) GetTrade(id int64) (*domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.doc.Trades {
		if t.ID == id {
			trade := t
			return &trade, nil
		}
	}
	return nil, nil
}

// ListTrades retrieves trades newest first, optionally filtered by status
func (s *JSONStore) ListTrades(status domain.TradeStatus) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trades := make([]domain.Trade, 0, len(s.doc.Trades))
	for _, t := range s.doc.Trades {
		if status == "" || t.Status == status {
			trades = append(trades, t)
		}
	}
	sort.SliceStable(trades, func(i, j int) bool {
		return newerThan(trades[i].CreatedAt, trades[i].ID, trades[j].CreatedAt, trades[j].ID)
	})
	return trades, nil
}

// LogMessage appends a message log entry
func (s *JSONStore) LogMessage(waID, messageType string, content *string, direction domain.Direction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := domain.MessageLog{
		ID:          s.doc.NextMessageID,
		WAID:        waID,
		MessageType: messageType,
		Content:     content,
		Direction:   direction,
		Status:      domain.MessageStatusSent,
		CreatedAt:   s.now(),
	}

	prev := s.doc
	s.doc.Messages = append(s.doc.Messages, entry)
	s.doc.NextMessageID++
	if err := s.save(); err != nil {
		s.doc = prev
		return 0, err
	}
	return entry.ID, nil
}

// MessageHistory retrieves the latest messages exchanged with waID
func (s *JSONStore) MessageHistory(waID string, limit int) ([]domain.MessageLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []domain.MessageLog
	for _, m := range s.doc.Messages {
		if m.WAID == waID {
			entries = append(entries, m)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return newerThan(entries[i].CreatedAt, entries[i].ID, entries[j].CreatedAt, entries[j].ID)
	})

	if limit = historyLimit(limit); len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ClearAll deletes every trade and message (development only).
// Counters are kept so ids are never reused.
func (s *JSONStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc
	s.doc.Trades = []domain.Trade{}
	s.doc.Messages = []domain.MessageLog{}
	if err := s.save(); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

// Close is a no-op; every write is already on disk
func (s *JSONStore) Close() error {
	return nil
}

func newerThan(at time.Time, id int64, bt time.Time, bid int64) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return id > bid
}
