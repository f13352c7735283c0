package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"railalert/pkg/platform/sentinel"
)

// DBTX is the subset of pgxpool.Pool used by the archive.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresArchive writes dispatch summaries to whatsapp_audit.
type PostgresArchive struct {
	db DBTX
}

func NewPostgresArchive(db DBTX) *PostgresArchive {
	return &PostgresArchive{db: db}
}

func (a *PostgresArchive) Append(ctx context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := a.db.Exec(ctx, `
		INSERT INTO whatsapp_audit (
			id, line_code, message, recipient_count, delivered_count,
			test_mode, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		rec.ID,
		rec.Line,
		truncate(rec.Message, MaxMessageLength),
		rec.RecipientCount,
		rec.DeliveredCount,
		rec.Test,
		rec.Status,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

type recordRow struct {
	ID             uuid.UUID `db:"id"`
	LineCode       string    `db:"line_code"`
	Message        string    `db:"message"`
	RecipientCount int       `db:"recipient_count"`
	DeliveredCount int       `db:"delivered_count"`
	TestMode       bool      `db:"test_mode"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
}

// ListSince returns records created at or after since, newest first.
func (a *PostgresArchive) ListSince(ctx context.Context, since time.Time) ([]Record, error) {
	rows, err := a.db.Query(ctx, `
		SELECT id, line_code, message, recipient_count, delivered_count,
		       test_mode, status, created_at
		FROM whatsapp_audit
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w: %w", sentinel.ErrUnavailable, err)
	}
	scanned, err := pgx.CollectRows(rows, pgx.RowToStructByName[recordRow])
	if err != nil {
		return nil, fmt.Errorf("scan audit records: %w", err)
	}

	out := make([]Record, 0, len(scanned))
	for _, row := range scanned {
		out = append(out, Record{
			ID:             row.ID,
			Line:           row.LineCode,
			Message:        row.Message,
			RecipientCount: row.RecipientCount,
			DeliveredCount: row.DeliveredCount,
			Test:           row.TestMode,
			Status:         row.Status,
			CreatedAt:      row.CreatedAt,
		})
	}
	return out, nil
}
