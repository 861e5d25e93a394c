package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra"
	"trade_relay/internal/infra/feed"
	"trade_relay/internal/message"

	"github.com/shopspring/decimal"
)

// Order is a trade request submitted through the web form
type Order struct {
	PersonName  string          `json:"person_name"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// ParseOrder validates the order form fields. price is optional and defaults to zero.
func ParseOrder(form url.Values) (Order, error) {
	order := Order{
		PersonName:  strings.TrimSpace(form.Get("person_name")),
		ProductName: strings.TrimSpace(form.Get("product_name")),
		Price:       decimal.Zero,
	}
	if order.PersonName == "" {
		return Order{}, errors.New("person_name is required")
	}
	if order.ProductName == "" {
		return Order{}, errors.New("product_name is required")
	}

	qty, err := strconv.Atoi(strings.TrimSpace(form.Get("quantity")))
	if err != nil || qty <= 0 {
		return Order{}, fmt.Errorf("quantity must be a positive integer, got %q", form.Get("quantity"))
	}
	order.Quantity = qty

	if raw := strings.TrimSpace(form.Get("price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			return Order{}, fmt.Errorf("price must be a non-negative decimal, got %q", raw)
		}
		order.Price = price
	}

	return order, nil
}

// Receipt reports what happened to a submitted order
type Receipt struct {
	TradeID      int64
	ApprovalSent bool
}

// Intake turns order form submissions into pending trades and asks the approver to decide.
type Intake struct {
	store    domain.Store
	out      *outbox
	approver string
	metrics  *infra.Metrics
	onTrade  TradeListener
	logger   *slog.Logger
}

// NewIntake creates the order intake. An empty approver disables approval requests.
func NewIntake(store domain.Store, sender Sender, approver string, metrics *infra.Metrics, onTrade TradeListener) *Intake {
	logger := slog.Default().With("module", "intake")
	return &Intake{
		store:    store,
		out:      &outbox{sender: sender, store: store, metrics: metrics, logger: logger},
		approver: approver,
		metrics:  metrics,
		onTrade:  onTrade,
		logger:   logger,
	}
}

// Submit stores the order as a pending trade and sends the approval request.
// Only storage faults are returned; a failed notification leaves the trade in place.
func (i *Intake) Submit(ctx context.Context, order Order) (Receipt, error) {
	id, err := i.store.CreateTrade(order.PersonName, order.ProductName, order.Quantity, order.Price)
	if err != nil {
		i.metrics.RecordError()
		i.logger.ErrorContext(ctx, "Failed to create trade", slog.Any("error", err))
		return Receipt{}, err
	}
	i.metrics.RecordTradeCreated()

	trade, err := i.store.GetTrade(id)
	if err != nil || trade == nil {
		i.metrics.RecordError()
		i.logger.ErrorContext(ctx, "Created trade not readable", slog.Int64("trade_id", id), slog.Any("error", err))
		if err == nil {
			err = domain.NewStorageError("get_trade", fmt.Errorf("trade %d missing after create", id))
		}
		return Receipt{TradeID: id}, err
	}

	i.logger.InfoContext(ctx, "New order received",
		slog.Int64("trade_id", id),
		slog.String("person", order.PersonName),
		slog.String("product", order.ProductName),
		slog.Int("quantity", order.Quantity),
	)
	if i.onTrade != nil {
		i.onTrade(feed.EventTradeCreated, *trade)
	}

	receipt := Receipt{TradeID: id}
	if i.approver == "" {
		i.logger.WarnContext(ctx, "No approver configured, skipping approval request", slog.Int64("trade_id", id))
		return receipt, nil
	}

	if err := i.out.send(ctx, message.TradeApproval(i.approver, *trade)); err != nil {
		return receipt, nil
	}
	receipt.ApprovalSent = true
	return receipt, nil
}
