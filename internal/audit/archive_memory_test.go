package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryArchive(t *testing.T) {
	ctx := context.Background()
	archive := NewInMemoryArchive()
	now := time.Now()

	require.NoError(t, archive.Append(ctx, Record{Line: "NEL", Message: "old", CreatedAt: now.Add(-8 * 24 * time.Hour)}))
	require.NoError(t, archive.Append(ctx, Record{Line: "EWL", Message: "older", CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, archive.Append(ctx, Record{Line: "CCL", Message: "newest", CreatedAt: now.Add(-time.Minute)}))

	got, err := archive.ListSince(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newest", got[0].Message)
	assert.Equal(t, "older", got[1].Message)
	assert.NotEqual(t, uuid.Nil, got[0].ID)
}

func TestInMemoryArchiveTruncatesMessage(t *testing.T) {
	ctx := context.Background()
	archive := NewInMemoryArchive()

	require.NoError(t, archive.Append(ctx, Record{Line: "NEL", Message: strings.Repeat("é", 2000)}))

	got, err := archive.ListSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, MaxMessageLength, len([]rune(got[0].Message)))
	assert.False(t, got[0].CreatedAt.IsZero())
}
