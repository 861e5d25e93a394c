package webhook

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"trade_relay/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var orderForm = template.Must(template.ParseFS(templateFS, "templates/order_form.html"))

type orderResponse struct {
	Status       string        `json:"status"`
	Message      string        `json:"message"`
	OrderDetails service.Order `json:"order_details"`
	TradeID      int64         `json:"trade_id"`
	ApprovalSent bool          `json:"approval_sent"`
}

func (s *Server) handleOrderForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := orderForm.Execute(w, nil); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to render order form", slog.Any("error", err))
	}
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(ctx, "Error processing order", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to process order")
		return
	}

	order, err := service.ParseOrder(r.PostForm)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error processing order", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to process order")
		return
	}

	receipt, err := s.opts.Orders.Submit(ctx, order)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error processing order", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to process order")
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		Status:       "success",
		Message:      "Order received successfully",
		OrderDetails: order,
		TradeID:      receipt.TradeID,
		ApprovalSent: receipt.ApprovalSent,
	})
}
