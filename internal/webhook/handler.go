// Package webhook receives carrier status pushes and republishes them as
// normalized status events.
package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tournevent/courierhub/internal/events"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const maxBody = 1 << 20

// TokenHeader carries the shared secret when one is configured.
const TokenHeader = "X-Webhook-Token"

// Lookup returns the payload parser for a carrier.
type Lookup func(code shipper.Code) (shipper.WebhookParser, bool)

// Observer counts received updates.
type Observer interface {
	ObserveWebhook(carrier shipper.Code, status shipper.CanonicalStatus)
}

// Handler serves POST /webhooks/{carrier}.
type Handler struct {
	lookup    Lookup
	publisher events.Publisher
	logger    *otelzap.Logger
	observer  Observer
	token     string
	now       func() time.Time
}

// Config wires a Handler. Token, when set, must match the X-Webhook-Token header.
type Config struct {
	Lookup    Lookup
	Publisher events.Publisher
	Logger    *otelzap.Logger
	Observer  Observer
	Token     string
}

// NewHandler creates a webhook handler.
func NewHandler(cfg Config) *Handler {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Handler{
		lookup:    cfg.Lookup,
		publisher: publisher,
		logger:    cfg.Logger,
		observer:  cfg.Observer,
		token:     cfg.Token,
		now:       time.Now,
	}
}

type response struct {
	Accepted int    `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, response{Error: "method not allowed, use POST"})
		return
	}
	if h.token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(TokenHeader)), []byte(h.token)) != 1 {
		writeJSON(w, http.StatusUnauthorized, response{Error: "invalid webhook token"})
		return
	}

	code, ok := shipper.ParseCode(r.PathValue("carrier"))
	if !ok {
		writeJSON(w, http.StatusNotFound, response{Error: "unknown carrier"})
		return
	}
	parse, ok := h.lookup(code)
	if !ok {
		writeJSON(w, http.StatusNotFound, response{Error: "carrier does not push status updates"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, response{Error: "body too large"})
		return
	}

	updates, err := parse(body)
	if err != nil {
		h.logger.Ctx(ctx).Warn("Rejected webhook payload", zap.String("carrier", string(code)), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, shipper.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, response{Error: err.Error()})
		return
	}

	received := h.now()
	batch := make([]events.StatusEvent, 0, len(updates))
	for _, u := range updates {
		batch = append(batch, events.NewStatusEvent(u, received))
	}
	if err := h.publisher.Publish(ctx, batch...); err != nil {
		h.logger.Ctx(ctx).Warn("Failed to publish webhook status events",
			zap.String("carrier", string(code)),
			zap.Int("updates", len(updates)),
			zap.Error(err),
		)
		writeJSON(w, http.StatusServiceUnavailable, response{Error: "status events could not be published"})
		return
	}
	if h.observer != nil {
		for _, u := range updates {
			h.observer.ObserveWebhook(code, u.Status)
		}
	}

	h.logger.Ctx(ctx).Info("Accepted webhook",
		zap.String("carrier", string(code)),
		zap.Int("updates", len(updates)),
	)
	writeJSON(w, http.StatusAccepted, response{Accepted: len(updates)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
