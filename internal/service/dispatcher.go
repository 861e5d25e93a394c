package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra"
	"trade_relay/internal/infra/feed"
	"trade_relay/internal/infra/whatsapp"
	"trade_relay/internal/message"
)

const retryPrompt = "Please try again"

// Responder turns free text into the reply body.
type Responder func(input string) string

// UppercaseResponder echoes the input in upper case
func UppercaseResponder(input string) string {
	return strings.ToUpper(input)
}

// Dispatcher decides the reply to each inbound message and sends exactly one.
// It keeps no state between events.
type Dispatcher struct {
	store   domain.Store
	out     *outbox
	flow    message.FlowConfig
	respond Responder
	metrics *infra.Metrics
	onTrade TradeListener
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. onTrade may be nil.
func NewDispatcher(store domain.Store, sender Sender, flow message.FlowConfig, metrics *infra.Metrics, onTrade TradeListener) *Dispatcher {
	logger := slog.Default().With("module", "dispatcher")
	return &Dispatcher{
		store: store,
		out: &outbox{
			sender:  sender,
			store:   store,
			metrics: metrics,
			logger:  logger,
		},
		flow:    flow,
		respond: UppercaseResponder,
		metrics: metrics,
		onTrade: onTrade,
		logger:  logger,
	}
}

// SetResponder replaces the free-text reply generator
func (d *Dispatcher) SetResponder(r Responder) {
	d.respond = r
}

// Handle processes one inbound message.
// Returned errors are storage or transport faults; store changes made before a failed send are kept.
func (d *Dispatcher) Handle(ctx context.Context, in whatsapp.Inbound) error {
	start := time.Now()
	defer func() { d.metrics.RecordEvent(time.Since(start)) }()

	d.out.record(ctx, in.WAID, in.Message.Type, inboundContent(in.Message), domain.DirectionInbound)

	var err error
	switch in.Message.Type {
	case whatsapp.MessageTypeText:
		err = d.handleText(ctx, in)
	case whatsapp.MessageTypeInteractive:
		err = d.handleInteractive(ctx, in)
	default:
		d.logger.ErrorContext(ctx, "Unsupported message type", slog.String("type", in.Message.Type))
		err = d.sendRetry(ctx, in.WAID)
	}

	if err != nil {
		d.metrics.RecordError()
	}
	return err
}

func (d *Dispatcher) handleText(ctx context.Context, in whatsapp.Inbound) error {
	if in.Message.Text == nil {
		d.logger.ErrorContext(ctx, "Text message without body")
		return d.sendRetry(ctx, in.WAID)
	}

	body := in.Message.Text.Body
	switch strings.ToLower(strings.TrimSpace(body)) {
	case "menu":
		return d.out.send(ctx, message.Menu(in.WAID))
	case "hi":
		return d.out.send(ctx, message.Greeting(in.WAID))
	default:
		return d.out.send(ctx, message.Text(in.WAID, message.FormatText(d.respond(body))))
	}
}

func (d *Dispatcher) handleInteractive(ctx context.Context, in whatsapp.Inbound) error {
	interactive := in.Message.Interactive
	if interactive == nil || interactive.Type != whatsapp.InteractiveListReply || interactive.ListReply == nil {
		typ := ""
		if interactive != nil {
			typ = interactive.Type
		}
		d.logger.ErrorContext(ctx, "Unsupported interactive type", slog.String("type", typ))
		return d.sendRetry(ctx, in.WAID)
	}

	return d.handleSelection(ctx, in.WAID, ParseSelection(*interactive.ListReply))
}

func (d *Dispatcher) handleSelection(ctx context.Context, to string, sel Selection) error {
	switch s := sel.(type) {
	case OptionSelected:
		return d.out.send(ctx, message.Text(to, s.Title+" selected"))

	case InitiateTrade:
		return d.out.send(ctx, message.TradeInitiation(to, d.flow))

	case ListTrades:
		trades, err := d.store.ListTrades("")
		if err != nil {
			d.logger.ErrorContext(ctx, "Failed to list trades", slog.Any("error", err))
			return err
		}
		if len(trades) == 0 {
			return d.out.send(ctx, message.Text(to, "No trades found"))
		}
		return d.out.send(ctx, message.TradeHistory(to, trades))

	case AcknowledgeDecision:
		return d.out.send(ctx, message.Text(to, "Trade "+string(s.Status)))

	case DecideTrade:
		return d.decideTrade(ctx, to, s)

	case ViewTrade:
		trade, err := d.store.GetTrade(s.TradeID)
		if err != nil {
			d.logger.ErrorContext(ctx, "Failed to get trade", slog.Int64("trade_id", s.TradeID), slog.Any("error", err))
			return err
		}
		if trade == nil {
			return d.out.send(ctx, message.Text(to, fmt.Sprintf("Trade %d not found", s.TradeID)))
		}
		return d.out.send(ctx, message.TradeDetails(to, *trade))

	case Unrecognized:
		d.logger.ErrorContext(ctx, "Unsupported list reply id", slog.String("id", s.Key))
		return d.sendRetry(ctx, to)

	default:
		d.logger.ErrorContext(ctx, "Unhandled selection", slog.String("selection", fmt.Sprintf("%T", sel)))
		return d.sendRetry(ctx, to)
	}
}

// decideTrade updates the status, then notifies. A missing trade is a no-op update
// and the notification still goes out.
func (d *Dispatcher) decideTrade(ctx context.Context, to string, s DecideTrade) error {
	found, err := d.store.UpdateTradeStatus(s.TradeID, s.Status)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to update trade status",
			slog.Int64("trade_id", s.TradeID),
			slog.String("status", string(s.Status)),
			slog.Any("error", err),
		)
		return err
	}

	if !found {
		d.logger.WarnContext(ctx, "Status update for unknown trade", slog.Int64("trade_id", s.TradeID))
	} else {
		d.logger.InfoContext(ctx, "Trade status updated", slog.Int64("trade_id", s.TradeID), slog.String("status", string(s.Status)))
		d.publish(ctx, s.TradeID, s.Status)
	}

	return d.out.send(ctx, message.Text(to, fmt.Sprintf("Trade %d %s", s.TradeID, s.Status)))
}

func (d *Dispatcher) publish(ctx context.Context, id int64, status domain.TradeStatus) {
	if d.onTrade == nil {
		return
	}
	trade, err := d.store.GetTrade(id)
	if err != nil || trade == nil {
		d.logger.WarnContext(ctx, "Trade vanished before publish", slog.Int64("trade_id", id), slog.Any("error", err))
		return
	}
	d.onTrade(feed.EventForStatus(status), *trade)
}

func (d *Dispatcher) sendRetry(ctx context.Context, to string) error {
	return d.out.send(ctx, message.Text(to, d.respond(retryPrompt)))
}

func inboundContent(msg whatsapp.InboundMessage) *string {
	switch {
	case msg.Text != nil:
		return &msg.Text.Body
	case msg.Interactive != nil && msg.Interactive.ListReply != nil:
		id := msg.Interactive.ListReply.ID
		return &id
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
		id := msg.Interactive.ButtonReply.ID
		return &id
	default:
		return nil
	}
}
