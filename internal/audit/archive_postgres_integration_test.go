//go:build integration

package audit_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"railalert/internal/audit"
	"railalert/pkg/testutil/containers"
)

type PostgresArchiveSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	archive  *audit.PostgresArchive
}

func TestPostgresArchiveSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresArchiveSuite))
}

func (s *PostgresArchiveSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.archive = audit.NewPostgresArchive(s.postgres.Pool)
}

func (s *PostgresArchiveSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "whatsapp_audit"))
}

func (s *PostgresArchiveSuite) TestListSinceWindow() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	old := audit.Record{ID: uuid.New(), Line: "NEL", Message: "old", RecipientCount: 3, Status: "sent", CreatedAt: now.Add(-8 * 24 * time.Hour)}
	recent := audit.Record{ID: uuid.New(), Line: "EWL", Message: "recent", RecipientCount: 2, DeliveredCount: 1, Test: true, Status: "partial", CreatedAt: now.Add(-time.Hour)}
	s.Require().NoError(s.archive.Append(ctx, old))
	s.Require().NoError(s.archive.Append(ctx, recent))

	got, err := s.archive.ListSince(ctx, now.Add(-7*24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(recent.ID, got[0].ID)
	s.Equal("EWL", got[0].Line)
	s.Equal(2, got[0].RecipientCount)
	s.Equal(1, got[0].DeliveredCount)
	s.True(got[0].Test)
	s.Equal("partial", got[0].Status)
	s.True(recent.CreatedAt.Equal(got[0].CreatedAt))
}

func (s *PostgresArchiveSuite) TestLongMessageIsTruncated() {
	ctx := context.Background()
	s.Require().NoError(s.archive.Append(ctx, audit.Record{Line: "CCL", Message: strings.Repeat("x", 5000), Status: "sent"}))

	got, err := s.archive.ListSince(ctx, time.Now().Add(-time.Minute))
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Len(got[0].Message, audit.MaxMessageLength)
}
