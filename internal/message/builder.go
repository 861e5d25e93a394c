// Package message renders outbound WhatsApp payloads.
// Every function here is pure: callers fetch whatever data a message needs.
package message

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra/whatsapp"
)

// Selection keys carried by list rows.
const (
	KeyOption1       = "1"
	KeyOption2       = "2"
	KeyInitiateTrade = "initiate_trade"
	KeyTradeHistory  = "trade_history"
	KeyApproveTrade  = "approve_trade"
	KeyRejectTrade   = "reject_trade"

	PrefixApproveTrade = "approveTrade_"
	PrefixRejectTrade  = "rejectTrade_"
	PrefixViewTrade    = "viewTrade_"
)

// WhatsApp list limits
const (
	MaxListRows       = 10
	maxRowTitle       = 24
	maxRowDescription = 72
)

// FlowConfig identifies the WhatsApp Flow that collects a new trade
type FlowConfig struct {
	ID     string
	Token  string
	Screen string
	CTA    string
	Data   map[string]any
}

func envelope(to, typ string) *whatsapp.OutboundMessage {
	return &whatsapp.OutboundMessage{
		MessagingProduct: whatsapp.MessagingProduct,
		RecipientType:    whatsapp.RecipientIndividual,
		To:               to,
		Type:             typ,
	}
}

func list(to, header, body, footer, button string, rows []whatsapp.Row) *whatsapp.OutboundMessage {
	msg := envelope(to, whatsapp.MessageTypeInteractive)
	msg.Interactive = &whatsapp.Interactive{
		Type:   whatsapp.InteractiveList,
		Header: &whatsapp.Header{Type: "text", Text: header},
		Body:   &whatsapp.BodyText{Text: body},
		Footer: &whatsapp.BodyText{Text: footer},
		Action: whatsapp.Action{
			Button:   button,
			Sections: []whatsapp.Section{{Title: "Section 1", Rows: rows}},
		},
	}
	return msg
}

// Text builds a plain text message
func Text(to, body string) *whatsapp.OutboundMessage {
	msg := envelope(to, whatsapp.MessageTypeText)
	msg.Text = &whatsapp.Text{PreviewURL: false, Body: body}
	return msg
}

// Greeting builds the top-level menu sent in reply to "hi"
func Greeting(to string) *whatsapp.OutboundMessage {
	return list(to,
		"Greetings from Traders",
		"What would you like to do?",
		"Choose from the following options",
		"Select any one option",
		[]whatsapp.Row{
			{ID: KeyInitiateTrade, Title: "Initiate a new trade", Description: "Initiate a new trade"},
			{ID: KeyTradeHistory, Title: "View my trade history", Description: "View my trade history"},
		},
	)
}

// Menu builds the generic two-option menu sent in reply to "menu"
func Menu(to string) *whatsapp.OutboundMessage {
	return list(to,
		"Menu",
		"Please pick an option",
		"Choose from the following options",
		"Select any one option",
		[]whatsapp.Row{
			{ID: KeyOption1, Title: "Option 1", Description: "First option"},
			{ID: KeyOption2, Title: "Option 2", Description: "Second option"},
		},
	)
}

// TradeInitiation opens the trade-entry flow
func TradeInitiation(to string, flow FlowConfig) *whatsapp.OutboundMessage {
	msg := envelope(to, whatsapp.MessageTypeInteractive)
	msg.Interactive = &whatsapp.Interactive{
		Type:   whatsapp.InteractiveFlow,
		Header: &whatsapp.Header{Type: "text", Text: "New trade"},
		Body:   &whatsapp.BodyText{Text: "Tell us what you want to trade"},
		Footer: &whatsapp.BodyText{Text: "Your request goes to an approver"},
		Action: whatsapp.Action{
			Name: "flow",
			Parameters: &whatsapp.FlowParameters{
				FlowMessageVersion: "3",
				FlowToken:          flow.Token,
				FlowID:             flow.ID,
				FlowCTA:            flow.CTA,
				FlowAction:         "navigate",
				FlowActionPayload: &whatsapp.FlowActionPayload{
					Screen: flow.Screen,
					Data:   copyData(flow.Data),
				},
			},
		},
	}
	return msg
}

// TradeApproval asks the approver to approve or reject a trade
func TradeApproval(to string, trade domain.Trade) *whatsapp.OutboundMessage {
	id := strconv.FormatInt(trade.ID, 10)
	body := fmt.Sprintf("%s wants to trade\nProduct: %s\nQuantity: %d\nPrice: %s",
		trade.PersonName, trade.ProductName, trade.Quantity, trade.Price.String())

	return list(to,
		"Trade approval",
		body,
		"Trade ID: "+id,
		"Review trade",
		[]whatsapp.Row{
			{ID: PrefixApproveTrade + id, Title: "Approve", Description: "Approve trade " + id},
			{ID: PrefixRejectTrade + id, Title: "Reject", Description: "Reject trade " + id},
		},
	)
}

// TradeHistory lists up to MaxListRows trades, one row per trade, in the given order.
// Callers must handle the empty case; WhatsApp rejects a list without rows.
func TradeHistory(to string, trades []domain.Trade) *whatsapp.OutboundMessage {
	if len(trades) > MaxListRows {
		trades = trades[:MaxListRows]
	}

	rows := make([]whatsapp.Row, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, whatsapp.Row{
			ID:          PrefixViewTrade + strconv.FormatInt(t.ID, 10),
			Title:       truncate(fmt.Sprintf("#%d %s", t.ID, t.ProductName), maxRowTitle),
			Description: truncate(fmt.Sprintf("%d x %s (%s)", t.Quantity, t.Price.String(), t.Status), maxRowDescription),
		})
	}

	return list(to,
		"Trade history",
		"Your most recent trades",
		"Select a trade to see details",
		"View trades",
		rows,
	)
}

// TradeDetails renders one trade as text.
// Field order is fixed: name, product, quantity, price, trade id.
func TradeDetails(to string, trade domain.Trade) *whatsapp.OutboundMessage {
	return Text(to, FormatTradeDetails(trade))
}

// FormatTradeDetails is the text body used by TradeDetails
func FormatTradeDetails(trade domain.Trade) string {
	return fmt.Sprintf("Name: %s\nProduct: %s\nQuantity: %d\nPrice: %s\nTrade ID: %d",
		trade.PersonName, trade.ProductName, trade.Quantity, trade.Price.String(), trade.ID)
}

var (
	citationPattern = regexp.MustCompile(`【.*?】`)
	boldPattern     = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// FormatText strips 【...】 citations and converts **bold** to WhatsApp *bold*
func FormatText(text string) string {
	text = strings.TrimSpace(citationPattern.ReplaceAllString(text, ""))
	return boldPattern.ReplaceAllString(text, "*$1*")
}

// Summary returns a short description of msg for the message log
func Summary(msg *whatsapp.OutboundMessage) string {
	switch {
	case msg.Text != nil:
		return msg.Text.Body
	case msg.Interactive != nil && msg.Interactive.Header != nil:
		return msg.Interactive.Type + ": " + msg.Interactive.Header.Text
	case msg.Interactive != nil:
		return msg.Interactive.Type
	default:
		return msg.Type
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// copyData keeps the payload independent of the shared config map
func copyData(data map[string]any) map[string]any {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
