package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra/whatsapp"
)

// handleVerify answers the platform's subscription handshake
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "" || token == "" {
		s.logger.InfoContext(r.Context(), "MISSING_PARAMETER")
		writeError(w, http.StatusBadRequest, "Missing parameters")
		return
	}
	if mode != "subscribe" || token != s.opts.VerifyToken {
		s.logger.InfoContext(r.Context(), "VERIFICATION_FAILED")
		writeError(w, http.StatusForbidden, "Verification failed")
		return
	}

	s.logger.InfoContext(r.Context(), "WEBHOOK_VERIFIED")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, challenge)
}

// handleWebhook classifies one delivery and dispatches it synchronously
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read webhook body", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "Invalid JSON provided")
		return
	}

	if s.opts.Verifier.Enabled() && !s.opts.Verifier.Verify(body, r.Header.Get(whatsapp.SignatureHeader)) {
		s.logger.WarnContext(ctx, "Signature verification failed")
		writeError(w, http.StatusForbidden, "Invalid signature")
		return
	}

	env, err := whatsapp.ParseEnvelope(body)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to decode JSON", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "Invalid JSON provided")
		return
	}

	if whatsapp.IsStatusUpdate(env) {
		s.opts.Metrics.RecordStatusReceipt()
		s.logger.InfoContext(ctx, "Received a WhatsApp status update")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if !whatsapp.IsValidMessage(env) {
		writeError(w, http.StatusNotFound, "Not a WhatsApp API event")
		return
	}

	in := whatsapp.ExtractMessage(env)
	s.logger.InfoContext(ctx, "Inbound message",
		slog.String("wa_id", in.WAID),
		slog.String("type", in.Message.Type),
	)

	if err := s.opts.Messages.Handle(ctx, in); err != nil {
		s.writeDispatchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDispatchError maps transport faults to their status and everything else to 500
func (s *Server) writeDispatchError(w http.ResponseWriter, r *http.Request, err error) {
	var te *domain.TransportError
	if errors.As(err, &te) {
		msg := "Failed to send message"
		if te.Timeout {
			msg = "Request timed out"
		}
		writeError(w, te.StatusCode(), msg)
		return
	}

	s.logger.ErrorContext(r.Context(), "Failed to process message", slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "Failed to process message")
}
