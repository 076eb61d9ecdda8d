package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastery/backend/internal/domain/catalog"
)

func TestGormSyncRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSyncRunRepository(newTestDB(t))
	base := time.Now().Add(-time.Hour).UTC()

	for i := 0; i < 3; i++ {
		run := catalog.NewSyncRun(base.Add(time.Duration(i) * time.Minute))
		run.Total = 2
		run.Processed = 1
		run.Created = 1
		run.RecordFailure("p-bad", errors.New("no variants"))
		run.Finish(run.StartedAt.Add(time.Second))
		require.NoError(t, repo.Save(ctx, run))
	}

	runs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.Equal(t, catalog.SyncStatusPartial, runs[0].Status)
	require.Len(t, runs[0].Failures, 1)
	assert.Equal(t, "p-bad", runs[0].Failures[0].ExternalProductID)
}
