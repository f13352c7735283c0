package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"railalert/internal/subscription/models"
)

// DBTX is the subset of pgxpool.Pool used by the postgres store.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres persists subscriptions in the whatsapp_subscriptions table. The
// unique (line_code, recipient) constraint makes Add idempotent under races.
type Postgres struct {
	db DBTX
}

func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Add(ctx context.Context, sub models.Subscription) (bool, error) {
	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO whatsapp_subscriptions (line_code, recipient, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (line_code, recipient) DO NOTHING
	`, string(sub.Line), string(sub.Recipient), createdAt)
	if err != nil {
		return false, unavailable("insert subscription", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Postgres) Remove(ctx context.Context, line models.LineCode, recipient models.Recipient) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM whatsapp_subscriptions
		WHERE line_code = $1 AND recipient = $2
	`, string(line), string(recipient))
	if err != nil {
		return false, unavailable("delete subscription", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Postgres) ListRecipients(ctx context.Context, line models.LineCode) ([]models.Recipient, error) {
	rows, err := s.db.Query(ctx, `
		SELECT recipient
		FROM whatsapp_subscriptions
		WHERE line_code = $1
		ORDER BY created_at, id
	`, string(line))
	if err != nil {
		return nil, unavailable("query recipients", err)
	}
	recipients, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, unavailable("scan recipients", err)
	}

	out := make([]models.Recipient, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, models.Recipient(r))
	}
	return out, nil
}

type lineRecipientRow struct {
	LineCode  string `db:"line_code"`
	Recipient string `db:"recipient"`
}

func (s *Postgres) ListAll(ctx context.Context) (map[models.LineCode][]models.Recipient, error) {
	rows, err := s.db.Query(ctx, `
		SELECT line_code, recipient
		FROM whatsapp_subscriptions
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, unavailable("query subscriptions", err)
	}
	all, err := pgx.CollectRows(rows, pgx.RowToStructByName[lineRecipientRow])
	if err != nil {
		return nil, unavailable("scan subscriptions", err)
	}

	out := make(map[models.LineCode][]models.Recipient)
	for _, row := range all {
		line := models.LineCode(row.LineCode)
		out[line] = append(out[line], models.Recipient(row.Recipient))
	}
	return out, nil
}
