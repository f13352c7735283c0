package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railalert/internal/subscription/models"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown line yields empty non-nil set", func(t *testing.T) {
		c := NewInMemoryCache()
		got, err := c.Recipients(ctx, models.LineDTL)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("add is a set insert", func(t *testing.T) {
		c := NewInMemoryCache()
		require.NoError(t, c.Add(ctx, models.LineNEL, "whatsapp:+652"))
		require.NoError(t, c.Add(ctx, models.LineNEL, "whatsapp:+651"))
		require.NoError(t, c.Add(ctx, models.LineNEL, "whatsapp:+652"))

		got, err := c.Recipients(ctx, models.LineNEL)
		require.NoError(t, err)
		assert.Equal(t, []models.Recipient{"whatsapp:+651", "whatsapp:+652"}, got)
	})

	t.Run("remove of absent member or line is a no-op", func(t *testing.T) {
		c := NewInMemoryCache()
		require.NoError(t, c.Remove(ctx, models.LineNEL, "whatsapp:+651"))
		require.NoError(t, c.Add(ctx, models.LineNEL, "whatsapp:+651"))
		require.NoError(t, c.Remove(ctx, models.LineNEL, "whatsapp:+651"))
		require.NoError(t, c.Remove(ctx, models.LineNEL, "whatsapp:+651"))

		snap, err := c.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap, "emptied lines are omitted from snapshots")
	})

	t.Run("replace overwrites the line only", func(t *testing.T) {
		c := NewInMemoryCache()
		require.NoError(t, c.Add(ctx, models.LineNEL, "whatsapp:+65stale"))
		require.NoError(t, c.Add(ctx, models.LineEWL, "whatsapp:+653"))

		require.NoError(t, c.Replace(ctx, models.LineNEL, []models.Recipient{"whatsapp:+652", "whatsapp:+651"}))
		got, err := c.Recipients(ctx, models.LineNEL)
		require.NoError(t, err)
		assert.Equal(t, []models.Recipient{"whatsapp:+651", "whatsapp:+652"}, got)

		require.NoError(t, c.Replace(ctx, models.LineNEL, nil))
		snap, err := c.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[models.LineCode][]models.Recipient{models.LineEWL: {"whatsapp:+653"}}, snap)
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		c := NewInMemoryCache()
		require.NoError(t, c.Add(ctx, models.LineEWL, "whatsapp:+651"))
		got, err := c.Recipients(ctx, models.LineEWL)
		require.NoError(t, err)
		got[0] = "tampered"

		again, err := c.Recipients(ctx, models.LineEWL)
		require.NoError(t, err)
		assert.Equal(t, []models.Recipient{"whatsapp:+651"}, again)
	})
}

func TestInMemoryCacheConcurrentLines(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	const perLine = 100

	var wg sync.WaitGroup
	for _, line := range models.ServiceLines {
		wg.Add(2)
		go func(line models.LineCode) {
			defer wg.Done()
			for i := 0; i < perLine; i++ {
				_ = c.Add(ctx, line, models.Recipient(fmt.Sprintf("whatsapp:+65%04d", i)))
			}
		}(line)
		go func(line models.LineCode) {
			defer wg.Done()
			for i := 0; i < perLine; i++ {
				_, _ = c.Recipients(ctx, line)
				_, _ = c.Snapshot(ctx)
			}
		}(line)
	}
	wg.Wait()

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, len(models.ServiceLines))
	for _, line := range models.ServiceLines {
		assert.Len(t, snap[line], perLine, "line %s", line)
	}
}
