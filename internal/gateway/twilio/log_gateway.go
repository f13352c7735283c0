package twilio

import (
	"context"
	"log/slog"

	"railalert/internal/subscription/models"
)

// LogGateway is a dry-run gateway that logs each message and reports success.
// It is selected when no Twilio credentials are configured.
type LogGateway struct {
	logger *slog.Logger
}

func NewLogGateway(logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(ctx context.Context, to models.Recipient, body string) error {
	g.logger.InfoContext(ctx, "dry-run delivery",
		"to", to,
		"body", body,
	)
	return nil
}
