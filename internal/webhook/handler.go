// Package webhook turns inbound chat messages into subscription changes and
// answers in TwiML.
package webhook

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"railalert/internal/platform/middleware"
	"railalert/internal/subscription/models"
	dErrors "railalert/pkg/domain-errors"
)

const (
	replyMissingFields = "Missing From/Body."
	replyNotSubscribed = "You are not subscribed to any lines. Try: SUB NEL"
	replyUnavailable   = "Sorry, we could not update your subscriptions right now. Please try again later."
	replyPartial       = "%s\nCould not update %s right now. Please try again later."
	replyHelp          = "LTA Rail Alerts 👋\nCommands:\nSUB NEL\nSUB EWL\nSUB CCL\nLINES\nUNSUB NEL"
)

// Service is the slice of the registry the webhook needs.
type Service interface {
	Subscribe(ctx context.Context, line, recipient string) (models.Subscription, error)
	Unsubscribe(ctx context.Context, line, recipient string) (models.Subscription, error)
	LinesFor(ctx context.Context, recipient string) ([]models.LineCode, error)
}

// Handler serves the provider's inbound message callback.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/twilio/whatsapp", h.handleInbound)
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

func (h *Handler) handleInbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.writeTwiML(ctx, w, replyMissingFields)
		return
	}
	from := strings.TrimSpace(r.PostForm.Get("From"))
	body := strings.TrimSpace(r.PostForm.Get("Body"))
	if from == "" || body == "" {
		h.writeTwiML(ctx, w, replyMissingFields)
		return
	}

	sender, err := models.NormalizeRecipient(from)
	if err != nil {
		h.writeTwiML(ctx, w, replyMissingFields)
		return
	}

	h.writeTwiML(ctx, w, h.reply(ctx, sender, ParseCommand(body)))
}

func (h *Handler) reply(ctx context.Context, sender models.Recipient, cmd Command) string {
	switch cmd.Verb {
	case VerbSubscribe:
		return h.apply(ctx, sender, cmd, h.service.Subscribe, "✅ Subscribed you to: ")
	case VerbUnsubscribe:
		return h.apply(ctx, sender, cmd, h.service.Unsubscribe, "✅ Unsubscribed you from: ")
	case VerbLines:
		lines, err := h.service.LinesFor(ctx, string(sender))
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to list lines for sender",
				"request_id", middleware.GetRequestID(ctx),
				"error", err,
			)
			return replyUnavailable
		}
		if len(lines) == 0 {
			return replyNotSubscribed
		}
		return "You are subscribed to: " + joinLines(lines)
	default:
		return replyHelp
	}
}

// apply validates every requested line before touching state so an unknown
// line leaves the sender's subscriptions unchanged.
func (h *Handler) apply(
	ctx context.Context,
	sender models.Recipient,
	cmd Command,
	op func(ctx context.Context, line, recipient string) (models.Subscription, error),
	prefix string,
) string {
	if len(cmd.Lines) == 0 {
		return fmt.Sprintf("Tell me which line. Example: %s NEL", cmd.Verb)
	}

	lines := make([]models.LineCode, 0, len(cmd.Lines))
	for _, raw := range cmd.Lines {
		line, err := models.ParseLine(raw)
		if err != nil {
			return fmt.Sprintf("Unknown line: %s. Valid lines: %s", raw, joinLines(models.ServiceLines))
		}
		lines = append(lines, line)
	}

	for i, line := range lines {
		if _, err := op(ctx, string(line), string(sender)); err != nil {
			h.logger.ErrorContext(ctx, "inbound subscription change failed",
				"request_id", middleware.GetRequestID(ctx),
				"verb", cmd.Verb,
				"line", line,
				"applied", i,
				"error", err,
			)
			// earlier lines are already stored
			if i > 0 {
				return fmt.Sprintf(replyPartial, prefix+joinLines(lines[:i]), joinLines(lines[i:]))
			}
			if dErrors.Is(err, dErrors.CodeStoreUnavailable) {
				return replyUnavailable
			}
			return "Sorry, something went wrong. Please try again."
		}
	}
	return prefix + joinLines(lines)
}

func (h *Handler) writeTwiML(ctx context.Context, w http.ResponseWriter, message string) {
	out, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode twiml", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func joinLines(lines []models.LineCode) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, string(l))
	}
	return strings.Join(parts, ", ")
}
