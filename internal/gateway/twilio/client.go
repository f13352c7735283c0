// Package twilio delivers WhatsApp messages through the Twilio Messages API.
package twilio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"railalert/internal/platform/config"
	"railalert/internal/platform/metrics"
	"railalert/internal/subscription/models"
)

const maxErrorBody = 4 << 10

// Error is returned when Twilio answers with a non-2xx status.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("twilio: status %d: %s", e.StatusCode, e.Body)
}

// Client sends one message per call. It is safe for concurrent use.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       models.Recipient
	http       *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient replaces the default client. The default verifies TLS
// certificates and applies the configured timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New builds a client from cfg. The sender number is normalized to the
// whatsapp: channel form.
func New(cfg config.TwilioConfig, opts ...Option) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("twilio: account sid, auth token and from number are required")
	}
	from, err := models.NormalizeRecipient(cfg.FromNumber)
	if err != nil {
		return nil, fmt.Errorf("twilio: from number: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       from,
		http:       &http.Client{Timeout: timeout},
		logger:     slog.Default(),
		tracer:     otel.Tracer("railalert/gateway/twilio"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
}

// Send posts a single message to to. Any non-2xx response is an *Error
// carrying the status and response body.
func (c *Client) Send(ctx context.Context, to models.Recipient, body string) error {
	ctx, span := c.tracer.Start(ctx, "twilio.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("messaging.destination", string(to))),
	)
	defer span.End()

	start := time.Now()
	err := c.send(ctx, to, body)
	if c.metrics != nil {
		c.metrics.ObserveGatewayLatency(time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return err
	}
	return nil
}

func (c *Client) send(ctx context.Context, to models.Recipient, body string) error {
	form := url.Values{}
	form.Set("From", string(c.from))
	form.Set("To", string(to))
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "twilio rejected message",
			"status", resp.StatusCode,
			"to", to,
		)
		return &Error{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
