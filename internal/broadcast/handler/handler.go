package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"railalert/internal/audit"
	"railalert/internal/broadcast/models"
	"railalert/internal/platform/middleware"
	subModels "railalert/internal/subscription/models"
	dErrors "railalert/pkg/domain-errors"
	"railalert/pkg/platform/httputil"
)

const archiveWindow = 7 * 24 * time.Hour

// Service defines the dispatch operations exposed over HTTP.
type Service interface {
	Alert(ctx context.Context, message string, testMode bool) (models.DispatchReport, error)
	BroadcastByLine(ctx context.Context, line, body string, testMode bool) (models.DispatchReport, error)
	Broadcast(ctx context.Context, line, body string, recipients []subModels.Recipient) models.DispatchReport
	BroadcastAll(ctx context.Context, body string) (models.DispatchReport, error)
	History(n int) []audit.Entry
	ArchiveSince(ctx context.Context, window time.Duration) ([]audit.Record, error)
}

// Handler serves the alert and audit admin endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register adds the routes to r. Callers are expected to apply the admin gate.
func (h *Handler) Register(r chi.Router) {
	r.Post("/alerts/simple", h.handleSimpleAlert)
	r.Post("/alerts/line/{line}", h.handleLineAlert)
	r.Post("/alerts/broadcast", h.handleBroadcast)
	r.Post("/alerts/all", h.handleBroadcastAll)
	r.Get("/audit", h.handleAudit)
	r.Get("/audit/last7d", h.handleAuditArchive)
}

// rejectionResponse keeps the line and message of a dispatch that was
// never attempted.
type rejectionResponse struct {
	httputil.ErrorResponse
	Line    subModels.LineCode `json:"line"`
	Message string             `json:"message"`
}

func (h *Handler) handleSimpleAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.decodeAlert(w, r)
	if !ok {
		return
	}
	report, err := h.service.Alert(ctx, req.Message, req.Test)
	h.writeDispatch(ctx, w, report, err)
}

func (h *Handler) handleLineAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	line, err := subModels.ParseLine(chi.URLParam(r, "line"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := h.decodeAlert(w, r)
	if !ok {
		return
	}
	report, err := h.service.BroadcastByLine(ctx, string(line), req.Message, req.Test)
	h.writeDispatch(ctx, w, report, err)
}

// handleBroadcastAll reaches every distinct subscriber once. In test mode only
// the operator address is targeted.
func (h *Handler) handleBroadcastAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := h.decodeAlert(w, r)
	if !ok {
		return
	}
	if req.Test {
		report, err := h.service.BroadcastByLine(ctx, string(subModels.LineGeneral), req.Message, true)
		h.writeDispatch(ctx, w, report, err)
		return
	}
	report, err := h.service.BroadcastAll(ctx, req.Message)
	h.writeDispatch(ctx, w, report, err)
}

func (h *Handler) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid broadcast request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	recipients := make([]subModels.Recipient, 0, len(req.Recipients))
	for _, raw := range req.Recipients {
		rec, err := subModels.NormalizeRecipient(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		recipients = append(recipients, rec)
	}

	report := h.service.Broadcast(ctx, req.Line, req.Message, recipients)
	h.writeDispatch(ctx, w, report, nil)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.History(limit))
}

func (h *Handler) handleAuditArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.service.ArchiveSince(ctx, archiveWindow)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit archive",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) decodeAlert(w http.ResponseWriter, r *http.Request) (models.AlertRequest, bool) {
	ctx := r.Context()
	var req models.AlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid alert request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return req, false
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return req, false
	}
	return req, true
}

// writeDispatch maps a report to a status: 200 when everyone was reached,
// 207 when some were, 502 when nobody was.
func (h *Handler) writeDispatch(ctx context.Context, w http.ResponseWriter, report models.DispatchReport, err error) {
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNoRecipients) {
			httputil.WriteJSON(w, http.StatusNotFound, rejectionResponse{
				ErrorResponse: httputil.ErrorResponse{
					Error:            string(dErrors.CodeNoRecipients),
					ErrorDescription: dErrors.MessageOf(err),
				},
				Line:    report.Line,
				Message: report.Message,
			})
			return
		}
		h.logger.ErrorContext(ctx, "broadcast failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	switch report.Status {
	case models.StatusSent:
		httputil.WriteJSON(w, http.StatusOK, report)
	case models.StatusPartial:
		httputil.WriteJSON(w, http.StatusMultiStatus, report)
	default:
		httputil.WriteJSON(w, http.StatusBadGateway, report)
	}
}
