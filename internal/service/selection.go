package service

import (
	"strconv"
	"strings"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra/whatsapp"
	"trade_relay/internal/message"
)

// Selection is the action a list reply asks for.
// The Dispatcher switches on the concrete type; Unrecognized is the fallback arm.
type Selection interface {
	selection()
}

// OptionSelected is a generic menu option ("1" or "2")
type OptionSelected struct {
	Key   string
	Title string
}

// InitiateTrade opens the trade-entry flow
type InitiateTrade struct{}

// ListTrades shows the trade history list
type ListTrades struct{}

// AcknowledgeDecision is the legacy approve/reject key without a trade id
type AcknowledgeDecision struct {
	Status domain.TradeStatus
}

// DecideTrade approves or rejects one trade
type DecideTrade struct {
	TradeID int64
	Status  domain.TradeStatus
}

// ViewTrade shows one trade's details
type ViewTrade struct {
	TradeID int64
}

// Unrecognized is any key outside the known set
type Unrecognized struct {
	Key string
}

func (OptionSelected) selection()      {}
func (InitiateTrade) selection()       {}
func (ListTrades) selection()          {}
func (AcknowledgeDecision) selection() {}
func (DecideTrade) selection()         {}
func (ViewTrade) selection()           {}
func (Unrecognized) selection()        {}

// ParseSelection maps a list reply row id to a Selection
func ParseSelection(reply whatsapp.Reply) Selection {
	switch reply.ID {
	case message.KeyOption1, message.KeyOption2:
		return OptionSelected{Key: reply.ID, Title: reply.Title}
	case message.KeyInitiateTrade:
		return InitiateTrade{}
	case message.KeyTradeHistory:
		return ListTrades{}
	case message.KeyApproveTrade:
		return AcknowledgeDecision{Status: domain.TradeStatusApproved}
	case message.KeyRejectTrade:
		return AcknowledgeDecision{Status: domain.TradeStatusRejected}
	}

	if id, ok := tradeIDAfter(reply.ID, message.PrefixApproveTrade); ok {
		return DecideTrade{TradeID: id, Status: domain.TradeStatusApproved}
	}
	if id, ok := tradeIDAfter(reply.ID, message.PrefixRejectTrade); ok {
		return DecideTrade{TradeID: id, Status: domain.TradeStatusRejected}
	}
	if id, ok := tradeIDAfter(reply.ID, message.PrefixViewTrade); ok {
		return ViewTrade{TradeID: id}
	}
	return Unrecognized{Key: reply.ID}
}

// tradeIDAfter parses "<prefix><positive int>"
func tradeIDAfter(key, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
