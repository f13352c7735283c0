package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"railalert/internal/platform/middleware"
	"railalert/internal/subscription/models"
	dErrors "railalert/pkg/domain-errors"
	"railalert/pkg/platform/httputil"
)

// Service defines the subscription operations exposed over HTTP.
type Service interface {
	Subscribe(ctx context.Context, line, recipient string) (models.Subscription, error)
	Unsubscribe(ctx context.Context, line, recipient string) (models.Subscription, error)
	ListAll(ctx context.Context) (map[models.LineCode][]models.Recipient, error)
}

// Handler serves the subscription admin endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register adds the routes to r. Callers are expected to apply the admin gate.
func (h *Handler) Register(r chi.Router) {
	r.Post("/subscribe", h.handleSubscribe)
	r.Post("/unsubscribe", h.handleUnsubscribe)
	r.Get("/subscriptions", h.handleList)
}

// SubscriptionRequest names a line and a phone number in any accepted format.
type SubscriptionRequest struct {
	Line  string `json:"line"`
	Phone string `json:"phone"`
}

// Follows validation order: Size -> Required.
func (r *SubscriptionRequest) Validate() error {
	if len(r.Line) > 32 || len(r.Phone) > 64 {
		return dErrors.New(dErrors.CodeValidation, "line or phone too long")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return dErrors.New(dErrors.CodeInvalidRecipient, "phone is required")
	}
	return nil
}

// SubscriptionResponse echoes the canonical pair.
type SubscriptionResponse struct {
	Line      models.LineCode  `json:"line"`
	Recipient models.Recipient `json:"recipient"`
	Status    string           `json:"status"`
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "subscribed", h.service.Subscribe)
}

func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "unsubscribed", h.service.Unsubscribe)
}

func (h *Handler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	status string,
	op func(ctx context.Context, line, recipient string) (models.Subscription, error),
) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid subscription request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	sub, err := op(ctx, req.Line, req.Phone)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeStoreUnavailable) {
			h.logger.ErrorContext(ctx, "subscription change failed",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubscriptionResponse{
		Line:      sub.Line,
		Recipient: sub.Recipient,
		Status:    status,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	all, err := h.service.ListAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list subscriptions",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, all)
}
