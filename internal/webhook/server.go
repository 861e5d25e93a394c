// Package webhook exposes the relay over HTTP: the messaging webhook,
// the order form, health and the live trade feed.
package webhook

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"trade_relay/internal/infra"
	"trade_relay/internal/infra/whatsapp"
	"trade_relay/internal/service"

	"github.com/oklog/ulid/v2"
)

// RequestIDHeader carries the per-request ULID back to the caller
const RequestIDHeader = "X-Request-Id"

const maxBodyBytes = 1 << 20

// MessageHandler processes one classified inbound message. *service.Dispatcher implements it.
type MessageHandler interface {
	Handle(ctx context.Context, in whatsapp.Inbound) error
}

// OrderSubmitter stores an order form submission. *service.Intake implements it.
type OrderSubmitter interface {
	Submit(ctx context.Context, order service.Order) (service.Receipt, error)
}

// Options wires the server's collaborators. Feed may be nil.
type Options struct {
	VerifyToken string
	Verifier    *whatsapp.Verifier
	Messages    MessageHandler
	Orders      OrderSubmitter
	Metrics     *infra.Metrics
	Feed        http.Handler
}

// Server routes HTTP requests to the relay
type Server struct {
	opts   Options
	logger *slog.Logger
}

// NewServer creates the HTTP surface
func NewServer(opts Options) *Server {
	if opts.Verifier == nil {
		opts.Verifier = whatsapp.NewVerifier("")
	}
	if opts.Metrics == nil {
		opts.Metrics = infra.NewMetrics()
	}
	return &Server{
		opts:   opts,
		logger: slog.Default().With("module", "webhook"),
	}
}

// Routes returns the handler tree
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /webhook", s.handleVerify)
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /{$}", s.handleOrderForm)
	mux.HandleFunc("POST /submit-order", s.handleSubmitOrder)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.opts.Feed != nil {
		mux.Handle("GET /ws/trades", s.opts.Feed)
	}
	return s.withRequestID(s.withRecovery(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"metrics": s.opts.Metrics.Snapshot(),
	})
}

// withRequestID tags the request context with a fresh ULID and logs the outcome
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ulid.Make().String()
		ctx := infra.WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.logger.DebugContext(ctx, "Request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// withRecovery turns a handler panic into a 500 instead of killing the process
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				s.opts.Metrics.RecordError()
				s.logger.ErrorContext(r.Context(), "CRITICAL_PANIC_DETECTED", slog.Any("panic", p), slog.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the feed upgrade to a websocket through the recorder
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Warn("Failed to write response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
