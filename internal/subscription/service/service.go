package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"railalert/internal/platform/metrics"
	"railalert/internal/platform/middleware"
	"railalert/internal/subscription/models"
	dErrors "railalert/pkg/domain-errors"
	"railalert/pkg/platform/sentinel"
	"railalert/pkg/platform/circuit"
	pstrings "railalert/pkg/platform/strings"
)

var errCircuitOpen = fmt.Errorf("subscription store circuit open: %w", sentinel.ErrUnavailable)

// Store is the durable tier. Add and Remove are idempotent.
type Store interface {
	Add(ctx context.Context, sub models.Subscription) (bool, error)
	Remove(ctx context.Context, line models.LineCode, recipient models.Recipient) (bool, error)
	ListRecipients(ctx context.Context, line models.LineCode) ([]models.Recipient, error)
	ListAll(ctx context.Context) (map[models.LineCode][]models.Recipient, error)
}

// Cache is the in-process (or shared) mirror of the store. Every successful
// store read is written back with Replace, so a lost mirror write heals on the
// next read.
type Cache interface {
	Add(ctx context.Context, line models.LineCode, recipient models.Recipient) error
	Remove(ctx context.Context, line models.LineCode, recipient models.Recipient) error
	Replace(ctx context.Context, line models.LineCode, recipients []models.Recipient) error
	Recipients(ctx context.Context, line models.LineCode) ([]models.Recipient, error)
	Snapshot(ctx context.Context) (map[models.LineCode][]models.Recipient, error)
}

// Registry is the single view over both tiers. Writes go to the store first
// and are mirrored into the cache only on success; reads prefer the store.
type Registry struct {
	store   Store
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
	breaker *circuit.Breaker
	now     func() time.Time
}

type Option func(r *Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithBreaker guards store reads. While the breaker is open reads are served
// from the cache without touching the store; writes still go to the store.
func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Registry) {
		r.breaker = b
	}
}

// WithClock overrides time.Now for created-at stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// New constructs a Registry. Both tiers are required.
func New(store Store, cache Cache, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("subscription store is required")
	}
	if cache == nil {
		return nil, errors.New("subscription cache is required")
	}
	r := &Registry{
		store:  store,
		cache:  cache,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Subscribe registers recipient for line. Re-subscribing is a no-op.
func (r *Registry) Subscribe(ctx context.Context, line, recipient string) (models.Subscription, error) {
	sub, err := r.parse(line, recipient)
	if err != nil {
		return models.Subscription{}, err
	}
	sub.CreatedAt = r.now()

	created, err := r.store.Add(ctx, sub)
	r.observe(ctx, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "subscribe failed: store unavailable",
			"request_id", middleware.GetRequestID(ctx),
			"line", sub.Line,
			"error", err,
		)
		return models.Subscription{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "subscription store unavailable")
	}
	if err := r.cache.Add(ctx, sub.Line, sub.Recipient); err != nil {
		r.logger.WarnContext(ctx, "cache mirror failed after subscribe",
			"line", sub.Line,
			"error", err,
		)
	}

	if created {
		r.incrementChange("subscribe")
	}
	r.logger.InfoContext(ctx, "subscribed",
		"request_id", middleware.GetRequestID(ctx),
		"line", sub.Line,
		"recipient", sub.Recipient,
		"created", created,
	)
	return sub, nil
}

// Unsubscribe removes recipient from line. Removing an absent pair is not an error.
func (r *Registry) Unsubscribe(ctx context.Context, line, recipient string) (models.Subscription, error) {
	sub, err := r.parse(line, recipient)
	if err != nil {
		return models.Subscription{}, err
	}

	removed, err := r.store.Remove(ctx, sub.Line, sub.Recipient)
	r.observe(ctx, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "unsubscribe failed: store unavailable",
			"request_id", middleware.GetRequestID(ctx),
			"line", sub.Line,
			"error", err,
		)
		return models.Subscription{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "subscription store unavailable")
	}
	if err := r.cache.Remove(ctx, sub.Line, sub.Recipient); err != nil {
		r.logger.WarnContext(ctx, "cache mirror failed after unsubscribe",
			"line", sub.Line,
			"error", err,
		)
	}

	if removed {
		r.incrementChange("unsubscribe")
	}
	r.logger.InfoContext(ctx, "unsubscribed",
		"request_id", middleware.GetRequestID(ctx),
		"line", sub.Line,
		"recipient", sub.Recipient,
		"removed", removed,
	)
	return sub, nil
}

// ListRecipients reads the line from the store, degrading to the cache when
// the store fails. The line is normalized but not validated.
func (r *Registry) ListRecipients(ctx context.Context, line string) ([]models.Recipient, error) {
	l := models.NormalizeLine(line)
	recipients, err := r.storeRecipients(ctx, l)
	if err == nil {
		return recipients, nil
	}
	r.degraded(ctx, "list_recipients", err)
	return r.cacheRecipients(ctx, l)
}

// ListAll returns every line with its recipients. The cache snapshot is used
// when the store is empty or unreachable.
func (r *Registry) ListAll(ctx context.Context) (map[models.LineCode][]models.Recipient, error) {
	all, err := r.storeSnapshot(ctx)
	if err == nil {
		if len(all) > 0 {
			return all, nil
		}
	} else {
		r.degraded(ctx, "list_all", err)
	}

	snap, cacheErr := r.cache.Snapshot(ctx)
	if cacheErr != nil {
		if err != nil {
			return nil, dErrors.Wrap(errors.Join(err, cacheErr), dErrors.CodeStoreUnavailable, "subscriptions unavailable")
		}
		// Store answered with nothing; an empty result is still correct.
		return map[models.LineCode][]models.Recipient{}, nil
	}
	return snap, nil
}

// LinesFor returns the sorted lines recipient follows.
func (r *Registry) LinesFor(ctx context.Context, recipient string) ([]models.LineCode, error) {
	rec, err := models.NormalizeRecipient(recipient)
	if err != nil {
		return nil, err
	}
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]models.LineCode, 0)
	for line, recipients := range all {
		for _, candidate := range recipients {
			if candidate == rec {
				lines = append(lines, line)
				break
			}
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })
	return lines, nil
}

// Recipients returns the distinct union of every line's recipients.
func (r *Registry) Recipients(ctx context.Context) ([]models.Recipient, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]models.LineCode, 0, len(all))
	for line := range all {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })

	flat := make([]string, 0)
	for _, line := range lines {
		for _, rec := range all[line] {
			flat = append(flat, string(rec))
		}
	}

	out := make([]models.Recipient, 0, len(flat))
	for _, rec := range pstrings.Dedupe(flat, nil) {
		out = append(out, models.Recipient(rec))
	}
	return out, nil
}

func (r *Registry) parse(line, recipient string) (models.Subscription, error) {
	l, err := models.ParseLine(line)
	if err != nil {
		return models.Subscription{}, err
	}
	rec, err := models.NormalizeRecipient(recipient)
	if err != nil {
		return models.Subscription{}, err
	}
	return models.Subscription{Line: l, Recipient: rec}, nil
}

func (r *Registry) storeRecipients(ctx context.Context, line models.LineCode) ([]models.Recipient, error) {
	if !r.allow() {
		return nil, errCircuitOpen
	}
	recipients, err := r.store.ListRecipients(ctx, line)
	r.observe(ctx, err)
	if err != nil {
		return nil, err
	}
	r.refresh(ctx, line, recipients)
	return recipients, nil
}

func (r *Registry) storeSnapshot(ctx context.Context) (map[models.LineCode][]models.Recipient, error) {
	if !r.allow() {
		return nil, errCircuitOpen
	}
	all, err := r.store.ListAll(ctx)
	r.observe(ctx, err)
	if err != nil {
		return nil, err
	}
	// Lines absent from the snapshot have no subscribers; clear them too.
	for _, line := range knownLines(all) {
		r.refresh(ctx, line, all[line])
	}
	return all, nil
}

// refresh overwrites the cached line with what the store just returned.
func (r *Registry) refresh(ctx context.Context, line models.LineCode, recipients []models.Recipient) {
	if recipients == nil {
		recipients = []models.Recipient{}
	}
	if err := r.cache.Replace(ctx, line, recipients); err != nil {
		r.logger.WarnContext(ctx, "cache refresh from store failed",
			"request_id", middleware.GetRequestID(ctx),
			"line", line,
			"error", err,
		)
	}
}

// knownLines is every operated line, GENERAL, and any other line in all, sorted.
func knownLines(all map[models.LineCode][]models.Recipient) []models.LineCode {
	seen := make(map[models.LineCode]struct{}, len(models.ServiceLines)+1+len(all))
	lines := make([]models.LineCode, 0, len(seen))
	add := func(l models.LineCode) {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			lines = append(lines, l)
		}
	}
	for _, l := range models.ServiceLines {
		add(l)
	}
	add(models.LineGeneral)
	for l := range all {
		add(l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })
	return lines
}

func (r *Registry) allow() bool {
	return r.breaker == nil || r.breaker.Allow()
}

// observe feeds a store outcome to the breaker and logs transitions.
func (r *Registry) observe(ctx context.Context, err error) {
	if r.breaker == nil {
		return
	}
	if err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "circuit opened, serving subscriptions from cache",
				"breaker", r.breaker.Name(),
				"error", err,
			)
		}
		return
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "circuit closed, store reads resumed",
			"breaker", r.breaker.Name(),
		)
	}
}

func (r *Registry) cacheRecipients(ctx context.Context, line models.LineCode) ([]models.Recipient, error) {
	recipients, err := r.cache.Recipients(ctx, line)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "subscriptions unavailable")
	}
	return recipients, nil
}

func (r *Registry) degraded(ctx context.Context, op string, err error) {
	level := slog.LevelWarn
	if !errors.Is(err, sentinel.ErrUnavailable) {
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, "store read failed, serving from cache",
		"request_id", middleware.GetRequestID(ctx),
		"operation", op,
		"error", err,
	)
	if r.metrics != nil {
		r.metrics.IncrementDegradedRead(op)
	}
}

func (r *Registry) incrementChange(action string) {
	if r.metrics == nil {
		return
	}
	r.metrics.IncrementSubscriptionChange(action)
}
