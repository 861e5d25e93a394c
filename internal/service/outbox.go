package service

import (
	"context"
	"errors"
	"log/slog"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra"
	"trade_relay/internal/infra/whatsapp"
	"trade_relay/internal/message"
)

// Sender delivers one outbound message. *whatsapp.Client implements it.
type Sender interface {
	Send(ctx context.Context, msg *whatsapp.OutboundMessage) error
}

// TradeListener observes trade creation and status changes
type TradeListener func(event string, trade domain.Trade)

// outbox sends a message, records the outcome and logs it to the store.
type outbox struct {
	sender  Sender
	store   domain.Store
	metrics *infra.Metrics
	logger  *slog.Logger
}

func (o *outbox) send(ctx context.Context, msg *whatsapp.OutboundMessage) error {
	err := o.sender.Send(ctx, msg)

	var te *domain.TransportError
	timeout := errors.As(err, &te) && te.Timeout
	o.metrics.RecordSend(err, timeout)

	if err != nil {
		attrs := []any{slog.String("to", msg.To), slog.String("type", msg.Type), slog.Any("error", err)}
		if te != nil {
			attrs = append(attrs, slog.Int("status", te.StatusCode()), slog.Bool("retriable", te.IsRetriable()))
		}
		o.logger.ErrorContext(ctx, "Failed to send message", attrs...)
		return err
	}

	summary := message.Summary(msg)
	o.record(ctx, msg.To, msg.Type, &summary, domain.DirectionOutbound)
	return nil
}

// record appends to the message log. Failures are logged and do not stop the reply.
func (o *outbox) record(ctx context.Context, waID, messageType string, content *string, direction domain.Direction) {
	if _, err := o.store.LogMessage(waID, messageType, content, direction); err != nil {
		o.metrics.RecordError()
		o.logger.ErrorContext(ctx, "Failed to log message",
			slog.String("wa_id", waID),
			slog.String("direction", string(direction)),
			slog.Any("error", err),
		)
	}
}
