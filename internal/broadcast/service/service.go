package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"railalert/internal/audit"
	"railalert/internal/broadcast/models"
	"railalert/internal/platform/metrics"
	"railalert/internal/platform/middleware"
	subModels "railalert/internal/subscription/models"
	dErrors "railalert/pkg/domain-errors"
)

// Gateway sends one message to one recipient.
type Gateway interface {
	Send(ctx context.Context, to subModels.Recipient, body string) error
}

// Resolver yields the target recipients for a line.
type Resolver interface {
	Resolve(ctx context.Context, line string, testMode bool) ([]subModels.Recipient, error)
}

// Directory lists every distinct subscriber.
type Directory interface {
	Recipients(ctx context.Context) ([]subModels.Recipient, error)
}

// Archive persists dispatch summaries beyond the in-memory trail.
type Archive interface {
	Append(ctx context.Context, rec audit.Record) error
	ListSince(ctx context.Context, since time.Time) ([]audit.Record, error)
}

// detectionOrder is the precedence used when a free-text alert mentions
// more than one line.
var detectionOrder = []subModels.LineCode{
	subModels.LineNEL,
	subModels.LineNSL,
	subModels.LineEWL,
	subModels.LineCCL,
	subModels.LineDTL,
	subModels.LineTEL,
	subModels.LineBPLRT,
	subModels.LineSPLRT,
}

// Dispatcher fans alerts out through the gateway and records every dispatch.
type Dispatcher struct {
	gateway     Gateway
	resolver    Resolver
	directory   Directory
	trail       *audit.Trail
	archive     Archive
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	concurrency int
	now         func() time.Time
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithArchive enables durable dispatch records.
func WithArchive(a Archive) Option {
	return func(d *Dispatcher) {
		d.archive = a
	}
}

// WithDirectory enables BroadcastAll.
func WithDirectory(dir Directory) Option {
	return func(d *Dispatcher) {
		d.directory = dir
	}
}

// WithConcurrency bounds the number of in-flight gateway calls per dispatch.
// Values below 2 keep delivery sequential.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.concurrency = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New constructs a Dispatcher. gateway, resolver and trail are required.
func New(gateway Gateway, resolver Resolver, trail *audit.Trail, opts ...Option) (*Dispatcher, error) {
	if gateway == nil {
		return nil, errors.New("delivery gateway is required")
	}
	if resolver == nil {
		return nil, errors.New("recipient resolver is required")
	}
	if trail == nil {
		return nil, errors.New("audit trail is required")
	}
	d := &Dispatcher{
		gateway:     gateway,
		resolver:    resolver,
		trail:       trail,
		logger:      slog.Default(),
		tracer:      otel.Tracer("railalert/broadcast"),
		concurrency: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// FormatBanner renders the outbound message body.
func FormatBanner(line subModels.LineCode, body string) string {
	return "🚇 " + string(line) + " Service Update\n" + body
}

// DetectLine returns the first known line code mentioned in message, or
// GENERAL when none is.
func DetectLine(message string) subModels.LineCode {
	upper := strings.ToUpper(message)
	for _, line := range detectionOrder {
		if strings.Contains(upper, string(line)) {
			return line
		}
	}
	return subModels.LineGeneral
}

// Broadcast sends body to every recipient in order, once per entry. A failed
// recipient never stops delivery to the rest.
func (d *Dispatcher) Broadcast(ctx context.Context, line, body string, recipients []subModels.Recipient) models.DispatchReport {
	return d.dispatch(ctx, subModels.NormalizeLine(line), body, recipients, false)
}

// BroadcastByLine resolves the audience for line and dispatches to it. An
// empty audience is rejected with no_recipients; the returned report still
// carries the line and message.
func (d *Dispatcher) BroadcastByLine(ctx context.Context, line, body string, testMode bool) (models.DispatchReport, error) {
	l := subModels.NormalizeLine(line)
	recipients, err := d.resolver.Resolve(ctx, string(l), testMode)
	if err != nil {
		return d.rejected(l, body, testMode), err
	}
	if len(recipients) == 0 {
		d.logger.WarnContext(ctx, "broadcast rejected: no recipients",
			"request_id", middleware.GetRequestID(ctx),
			"line", l,
			"test", testMode,
		)
		d.incrementDispatch(models.StatusRejected)
		return d.rejected(l, body, testMode),
			dErrors.New(dErrors.CodeNoRecipients, fmt.Sprintf("no recipients for line %s", l))
	}
	return d.dispatch(ctx, l, body, recipients, testMode), nil
}

// Alert detects the line from free text and broadcasts to it.
func (d *Dispatcher) Alert(ctx context.Context, message string, testMode bool) (models.DispatchReport, error) {
	return d.BroadcastByLine(ctx, string(DetectLine(message)), message, testMode)
}

// BroadcastAll sends a GENERAL banner to every distinct subscriber.
func (d *Dispatcher) BroadcastAll(ctx context.Context, body string) (models.DispatchReport, error) {
	if d.directory == nil {
		return d.rejected(subModels.LineGeneral, body, false),
			dErrors.New(dErrors.CodeInternal, "subscriber directory not configured")
	}
	recipients, err := d.directory.Recipients(ctx)
	if err != nil {
		return d.rejected(subModels.LineGeneral, body, false), err
	}
	if len(recipients) == 0 {
		d.incrementDispatch(models.StatusRejected)
		return d.rejected(subModels.LineGeneral, body, false),
			dErrors.New(dErrors.CodeNoRecipients, "no subscribers")
	}
	return d.dispatch(ctx, subModels.LineGeneral, body, recipients, false), nil
}

// History returns up to n trail entries, newest first.
func (d *Dispatcher) History(n int) []audit.Entry {
	return d.trail.Recent(n)
}

// ArchiveSince lists durable records newer than window.
func (d *Dispatcher) ArchiveSince(ctx context.Context, window time.Duration) ([]audit.Record, error) {
	if d.archive == nil {
		return []audit.Record{}, nil
	}
	records, err := d.archive.ListSince(ctx, d.now().Add(-window))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "audit archive unavailable")
	}
	return records, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, line subModels.LineCode, body string, recipients []subModels.Recipient, testMode bool) models.DispatchReport {
	report := models.DispatchReport{
		ID:           uuid.New(),
		Line:         line,
		Message:      body,
		Test:         testMode,
		DispatchedAt: d.now(),
	}

	ctx, span := d.tracer.Start(ctx, "broadcast.dispatch", trace.WithAttributes(
		attribute.String("dispatch.id", report.ID.String()),
		attribute.String("dispatch.line", string(line)),
		attribute.Int("dispatch.recipients", len(recipients)),
		attribute.Bool("dispatch.test", testMode),
	))
	defer span.End()

	text := FormatBanner(line, body)
	if d.concurrency > 1 && len(recipients) > 1 {
		report.Outcomes = d.sendConcurrent(ctx, text, recipients)
	} else {
		report.Outcomes = d.sendSequential(ctx, text, recipients)
	}
	report.Tally()

	span.SetAttributes(
		attribute.Int("dispatch.sent", report.Sent),
		attribute.Int("dispatch.failed", report.Failed),
	)
	if report.Failed > 0 {
		span.SetStatus(codes.Error, string(report.Status))
	}

	d.record(ctx, report)
	d.incrementDispatch(report.Status)
	d.logger.InfoContext(ctx, "broadcast dispatched",
		"request_id", middleware.GetRequestID(ctx),
		"dispatch_id", report.ID,
		"line", line,
		"status", report.Status,
		"sent", report.Sent,
		"failed", report.Failed,
		"test", testMode,
	)
	return report
}

func (d *Dispatcher) sendSequential(ctx context.Context, text string, recipients []subModels.Recipient) []models.Outcome {
	outcomes := make([]models.Outcome, len(recipients))
	for i, to := range recipients {
		outcomes[i] = d.send(ctx, to, text)
	}
	return outcomes
}

// sendConcurrent keeps one slot per input index so outcome identity survives
// out-of-order completion.
func (d *Dispatcher) sendConcurrent(ctx context.Context, text string, recipients []subModels.Recipient) []models.Outcome {
	outcomes := make([]models.Outcome, len(recipients))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, to := range recipients {
		g.Go(func() error {
			outcomes[i] = d.send(ctx, to, text)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (d *Dispatcher) send(ctx context.Context, to subModels.Recipient, text string) models.Outcome {
	err := d.gateway.Send(ctx, to, text)
	if err != nil {
		d.logger.WarnContext(ctx, "delivery failed",
			"request_id", middleware.GetRequestID(ctx),
			"to", to,
			"error", err,
		)
		d.incrementDelivery("failed")
		return models.Outcome{Recipient: to, Err: err, Error: err.Error()}
	}
	d.incrementDelivery("delivered")
	return models.Outcome{Recipient: to, Delivered: true}
}

func (d *Dispatcher) record(ctx context.Context, report models.DispatchReport) {
	d.trail.Record(audit.Entry{
		Timestamp:  report.DispatchedAt,
		Line:       string(report.Line),
		Message:    report.Message,
		Recipients: report.Recipients(),
		Test:       report.Test,
	})
	if d.metrics != nil {
		d.metrics.SetAuditEntries(d.trail.Len())
	}

	if d.archive == nil {
		return
	}
	err := d.archive.Append(ctx, audit.Record{
		ID:             report.ID,
		Line:           string(report.Line),
		Message:        report.Message,
		RecipientCount: len(report.Outcomes),
		DeliveredCount: report.Sent,
		Test:           report.Test,
		Status:         string(report.Status),
		CreatedAt:      report.DispatchedAt,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to archive dispatch",
			"request_id", middleware.GetRequestID(ctx),
			"dispatch_id", report.ID,
			"error", err,
		)
	}
}

func (d *Dispatcher) rejected(line subModels.LineCode, body string, testMode bool) models.DispatchReport {
	return models.DispatchReport{
		ID:           uuid.New(),
		Line:         line,
		Message:      body,
		Test:         testMode,
		Status:       models.StatusRejected,
		Outcomes:     []models.Outcome{},
		DispatchedAt: d.now(),
	}
}

func (d *Dispatcher) incrementDispatch(status models.Status) {
	if d.metrics == nil {
		return
	}
	d.metrics.IncrementDispatch(string(status))
}

func (d *Dispatcher) incrementDelivery(outcome string) {
	if d.metrics == nil {
		return
	}
	d.metrics.IncrementDelivery(outcome)
}
