package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra"
	"trade_relay/internal/infra/feed"
	"trade_relay/internal/infra/whatsapp"
	"trade_relay/internal/message"

	"github.com/shopspring/decimal"
)

const party = "15551234567"

type published struct {
	event string
	trade domain.Trade
}

func newTestDispatcher(t *testing.T, store domain.Store, sender Sender) (*Dispatcher, *[]published) {
	t.Helper()
	var events []published
	d := NewDispatcher(store, sender, message.FlowConfig{ID: "flow-1", Token: "tok", Screen: "TRADE", CTA: "Go"},
		infra.NewMetrics(), func(event string, trade domain.Trade) {
			events = append(events, published{event, trade})
		})
	return d, &events
}

func textInbound(body string) whatsapp.Inbound {
	return whatsapp.Inbound{
		WAID: party,
		Name: "Alice",
		Message: whatsapp.InboundMessage{
			From: party,
			Type: whatsapp.MessageTypeText,
			Text: &whatsapp.InboundText{Body: body},
		},
	}
}

func listReply(id, title string) whatsapp.Inbound {
	return whatsapp.Inbound{
		WAID: party,
		Message: whatsapp.InboundMessage{
			From: party,
			Type: whatsapp.MessageTypeInteractive,
			Interactive: &whatsapp.InboundInteractive{
				Type:      whatsapp.InteractiveListReply,
				ListReply: &whatsapp.Reply{ID: id, Title: title},
			},
		},
	}
}

func headerOf(msg *whatsapp.OutboundMessage) string {
	if msg.Interactive == nil || msg.Interactive.Header == nil {
		return ""
	}
	return msg.Interactive.Header.Text
}

func TestDispatcher_TextKeywords(t *testing.T) {
	cases := []struct {
		body   string
		header string
	}{
		{"menu", "Menu"},
		{"MENU", "Menu"},
		{" Menu ", "Menu"},
		{"hi", "Greetings from Traders"},
		{"Hi", "Greetings from Traders"},
	}

	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			sender := &recordingSender{}
			d, _ := newTestDispatcher(t, newTestStore(t), sender)

			if err := d.Handle(context.Background(), textInbound(tc.body)); err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			msg := sender.only(t)
			if got := headerOf(msg); got != tc.header {
				t.Errorf("Expected header %q, got %q", tc.header, got)
			}
			if msg.To != party {
				t.Errorf("Expected reply to %s, got %s", party, msg.To)
			}
		})
	}
}

func TestDispatcher_TextEcho(t *testing.T) {
	sender := &recordingSender{}
	d, _ := newTestDispatcher(t, newTestStore(t), sender)

	if err := d.Handle(context.Background(), textInbound("hello there")); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	msg := sender.only(t)
	if msg.Text == nil || msg.Text.Body != "HELLO THERE" {
		t.Errorf("Expected echo 'HELLO THERE', got %+v", msg.Text)
	}
}

func TestDispatcher_CustomResponder(t *testing.T) {
	sender := &recordingSender{}
	d, _ := newTestDispatcher(t, newTestStore(t), sender)
	d.SetResponder(func(in string) string { return "**echo** " + in })

	d.Handle(context.Background(), textInbound("ping"))
	if body := sender.only(t).Text.Body; body != "*echo* ping" {
		t.Errorf("Expected formatted reply, got %q", body)
	}
}

func TestDispatcher_ApproveExistingTrade(t *testing.T) {
	store := newTestStore(t)
	var id int64
	for i := 0; i < 7; i++ {
		id, _ = store.CreateTrade("Bob", "Gadget", 2, decimal.NewFromInt(40))
	}
	if id != 7 {
		t.Fatalf("Expected trade 7, got %d", id)
	}

	sender := &recordingSender{}
	d, events := newTestDispatcher(t, store, sender)

	if err := d.Handle(context.Background(), listReply("approveTrade_7", "Approve")); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	trade, _ := store.GetTrade(7)
	if trade.Status != domain.TradeStatusApproved {
		t.Errorf("Expected approved, got %s", trade.Status)
	}
	msg := sender.only(t)
	if msg.Text == nil || msg.Text.Body != "Trade 7 approved" {
		t.Errorf("Unexpected notification %+v", msg.Text)
	}
	if len(*events) != 1 || (*events)[0].event != feed.EventTradeApproved {
		t.Errorf("Expected one approved event, got %+v", *events)
	}
}

func TestDispatcher_RejectMissingTrade(t *testing.T) {
	store := newTestStore(t)
	existing, _ := store.CreateTrade("Bob", "Gadget", 2, decimal.NewFromInt(40))

	sender := &recordingSender{}
	d, events := newTestDispatcher(t, store, sender)

	if err := d.Handle(context.Background(), listReply("rejectTrade_99", "Reject")); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	msg := sender.only(t)
	if msg.Text == nil || strings.Contains(msg.Text.Body, strings.ToUpper(retryPrompt)) {
		t.Errorf("Missing trade must not trigger the retry prompt, got %+v", msg.Text)
	}
	if msg.Text.Body != "Trade 99 rejected" {
		t.Errorf("Unexpected notification %q", msg.Text.Body)
	}
	trade, _ := store.GetTrade(existing)
	if trade.Status != domain.TradeStatusPending {
		t.Errorf("Unrelated trade changed to %s", trade.Status)
	}
	if len(*events) != 0 {
		t.Errorf("Expected no feed events, got %+v", *events)
	}
}

func TestDispatcher_UnknownSelection(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.CreateTrade("Bob", "Gadget", 2, decimal.NewFromInt(40))
	before, _ := store.GetTrade(id)

	sender := &recordingSender{}
	d, events := newTestDispatcher(t, store, sender)

	if err := d.Handle(context.Background(), listReply("launch_rocket", "Launch")); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	msg := sender.only(t)
	if msg.Text == nil || msg.Text.Body != "PLEASE TRY AGAIN" {
		t.Errorf("Expected retry prompt, got %+v", msg.Text)
	}
	trades, _ := store.ListTrades("")
	if len(trades) != 1 || trades[0].Status != domain.TradeStatusPending || !trades[0].UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("Trades mutated: %+v", trades)
	}
	if len(*events) != 0 {
		t.Errorf("Expected no feed events, got %+v", *events)
	}

	// only the conversation itself is logged
	history, _ := store.MessageHistory(party, 10)
	if len(history) != 2 {
		t.Fatalf("Expected exactly 2 log entries, got %d", len(history))
	}
	if history[1].Direction != domain.DirectionInbound || *history[1].Content != "launch_rocket" {
		t.Errorf("Unexpected inbound entry %+v", history[1])
	}
	if history[0].Direction != domain.DirectionOutbound || *history[0].Content != "PLEASE TRY AGAIN" {
		t.Errorf("Unexpected outbound entry %+v", history[0])
	}
}

func TestDispatcher_Fallbacks(t *testing.T) {
	t.Run("unsupported message type", func(t *testing.T) {
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, newTestStore(t), sender)

		in := whatsapp.Inbound{WAID: party, Message: whatsapp.InboundMessage{Type: "image"}}
		d.Handle(context.Background(), in)
		if body := sender.only(t).Text.Body; body != "PLEASE TRY AGAIN" {
			t.Errorf("Expected retry prompt, got %q", body)
		}
	})

	t.Run("unsupported interactive type", func(t *testing.T) {
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, newTestStore(t), sender)

		in := listReply("1", "x")
		in.Message.Interactive.Type = whatsapp.InteractiveButtonReply
		d.Handle(context.Background(), in)
		if body := sender.only(t).Text.Body; body != "PLEASE TRY AGAIN" {
			t.Errorf("Expected retry prompt, got %q", body)
		}
	})

	t.Run("text without body", func(t *testing.T) {
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, newTestStore(t), sender)

		in := whatsapp.Inbound{WAID: party, Message: whatsapp.InboundMessage{Type: whatsapp.MessageTypeText}}
		d.Handle(context.Background(), in)
		if body := sender.only(t).Text.Body; body != "PLEASE TRY AGAIN" {
			t.Errorf("Expected retry prompt, got %q", body)
		}
	})
}

func TestDispatcher_MenuSelections(t *testing.T) {
	t.Run("generic option", func(t *testing.T) {
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, newTestStore(t), sender)

		d.Handle(context.Background(), listReply("1", "Option 1"))
		if body := sender.only(t).Text.Body; body != "Option 1 selected" {
			t.Errorf("Unexpected reply %q", body)
		}
	})

	t.Run("initiate trade", func(t *testing.T) {
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, newTestStore(t), sender)

		d.Handle(context.Background(), listReply("initiate_trade", "Initiate a new trade"))
		msg := sender.only(t)
		if msg.Interactive == nil || msg.Interactive.Type != whatsapp.InteractiveFlow {
			t.Fatalf("Expected flow message, got %+v", msg)
		}
		if msg.Interactive.Action.Parameters.FlowID != "flow-1" {
			t.Errorf("Unexpected flow id %s", msg.Interactive.Action.Parameters.FlowID)
		}
	})

	t.Run("legacy approve", func(t *testing.T) {
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, newTestStore(t), sender)

		d.Handle(context.Background(), listReply("approve_trade", "Approve"))
		if body := sender.only(t).Text.Body; body != "Trade approved" {
			t.Errorf("Unexpected reply %q", body)
		}
	})
}

func TestDispatcher_TradeHistoryAndDetails(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, newTestStore(t), sender)

		d.Handle(context.Background(), listReply("trade_history", "View my trade history"))
		if body := sender.only(t).Text.Body; body != "No trades found" {
			t.Errorf("Unexpected reply %q", body)
		}
	})

	t.Run("history lists trades newest first", func(t *testing.T) {
		store := newTestStore(t)
		store.CreateTrade("A", "First", 1, decimal.NewFromInt(1))
		store.CreateTrade("B", "Second", 1, decimal.NewFromInt(1))
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, store, sender)

		d.Handle(context.Background(), listReply("trade_history", "View my trade history"))
		rows := sender.only(t).Interactive.Action.Sections[0].Rows
		if len(rows) != 2 || rows[0].ID != "viewTrade_2" || rows[1].ID != "viewTrade_1" {
			t.Errorf("Unexpected rows %+v", rows)
		}
	})

	t.Run("view details", func(t *testing.T) {
		store := newTestStore(t)
		id, _ := store.CreateTrade("Carol", "Bolt", 5, decimal.RequireFromString("1.25"))
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, store, sender)

		d.Handle(context.Background(), listReply("viewTrade_1", "#1 Bolt"))
		want := "Name: Carol\nProduct: Bolt\nQuantity: 5\nPrice: 1.25\nTrade ID: 1"
		if id != 1 || sender.only(t).Text.Body != want {
			t.Errorf("Unexpected details %q", sender.only(t).Text.Body)
		}
	})

	t.Run("view missing trade", func(t *testing.T) {
		sender := &recordingSender{}
		d, _ := newTestDispatcher(t, newTestStore(t), sender)

		d.Handle(context.Background(), listReply("viewTrade_5", "#5"))
		if body := sender.only(t).Text.Body; body != "Trade 5 not found" {
			t.Errorf("Unexpected reply %q", body)
		}
	})
}

func TestDispatcher_SendFailureKeepsStoreUpdate(t *testing.T) {
	store := newTestStore(t)
	id, _ := store.CreateTrade("Bob", "Gadget", 2, decimal.NewFromInt(40))

	sender := &recordingSender{err: domain.NewTimeoutError("send_message", context.DeadlineExceeded)}
	d, _ := newTestDispatcher(t, store, sender)

	err := d.Handle(context.Background(), listReply("approveTrade_1", "Approve"))
	var te *domain.TransportError
	if !errors.As(err, &te) || !te.Timeout {
		t.Fatalf("Expected timeout TransportError, got %v", err)
	}
	if te.StatusCode() != 408 {
		t.Errorf("Expected 408, got %d", te.StatusCode())
	}

	trade, _ := store.GetTrade(id)
	if trade.Status != domain.TradeStatusApproved {
		t.Errorf("Expected status update to survive send failure, got %s", trade.Status)
	}
	if snap := d.metrics.Snapshot(); snap.SendTimeouts != 1 || snap.ErrorsTotal != 1 {
		t.Errorf("Unexpected metrics %+v", snap)
	}
}

func TestDispatcher_StorageFault(t *testing.T) {
	sender := &recordingSender{}
	d, _ := newTestDispatcher(t, brokenStore{}, sender)

	err := d.Handle(context.Background(), listReply("approveTrade_1", "Approve"))
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("Expected no outbound message, got %d", len(sender.sent))
	}
}

func TestDispatcher_LogsConversation(t *testing.T) {
	store := newTestStore(t)
	sender := &recordingSender{}
	d, _ := newTestDispatcher(t, store, sender)

	d.Handle(context.Background(), textInbound("hi"))

	history, err := store.MessageHistory(party, 10)
	if err != nil {
		t.Fatalf("MessageHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 log entries, got %d", len(history))
	}
	if history[0].Direction != domain.DirectionOutbound || history[1].Direction != domain.DirectionInbound {
		t.Errorf("Unexpected directions %s, %s", history[0].Direction, history[1].Direction)
	}
	if history[1].Content == nil || *history[1].Content != "hi" {
		t.Errorf("Expected inbound content 'hi', got %+v", history[1].Content)
	}
}
