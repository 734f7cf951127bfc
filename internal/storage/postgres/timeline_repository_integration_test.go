package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestTimelineRepository_OrdersByOccurrence(t *testing.T) {
	repo := NewTimelineRepository(openPostgresStoreForIntegrationTest(t))
	ctx := context.Background()
	orderID := "order-" + time.Now().Format("150405.000000")
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{
		OrderID: orderID, Kind: domain.TimelineAmountMismatch, Note: "charged 900, expected 1000", OccurredAt: base.Add(time.Second),
	}))
	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{OrderID: orderID, Kind: domain.TimelineOrderPaid, OccurredAt: base}))
	require.NoError(t, repo.Append(ctx, domain.TimelineEvent{OrderID: orderID, Kind: domain.TimelineCartMissing}))

	history, err := repo.List(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []domain.TimelineKind{
		domain.TimelineOrderPaid, domain.TimelineAmountMismatch, domain.TimelineCartMissing,
	}, []domain.TimelineKind{history[0].Kind, history[1].Kind, history[2].Kind})
	assert.Equal(t, base, history[0].OccurredAt)
	assert.Equal(t, "charged 900, expected 1000", history[1].Note)
	assert.False(t, history[2].OccurredAt.IsZero())

	none, err := repo.List(ctx, orderID+"-missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}
