package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/pkg/models"
)

func TestNewJanitorDisabled(t *testing.T) {
	j := NewJanitor(store.NewMemoryStore(""), config.RetentionConfig{TraceDays: 0})
	assert.Nil(t, j)
}

func TestNewJanitorClampsInterval(t *testing.T) {
	j := NewJanitor(store.NewMemoryStore(""), config.RetentionConfig{TraceDays: 7, SweepHours: 0})
	require.NotNil(t, j)
	assert.Equal(t, time.Hour, j.interval)
}

func TestSweepPrunesOldTraces(t *testing.T) {
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateTrace(ctx, &models.CommandTrace{ID: "stale", IntentType: "task", CreatedAt: now.AddDate(0, 0, -10)}))
	require.NoError(t, s.CreateTrace(ctx, &models.CommandTrace{ID: "fresh", IntentType: "task", CreatedAt: now}))

	j := NewJanitor(s, config.RetentionConfig{TraceDays: 7, SweepHours: 6})
	require.NotNil(t, j)
	j.sweep(ctx)

	got, err := s.ListTraces(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)
}
