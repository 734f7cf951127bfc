package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortTimeline_StableByTime(t *testing.T) {
	t0 := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	events := []TimelineEvent{
		{Kind: TimelineAmountMismatch, OccurredAt: t0.Add(time.Second)},
		{Kind: TimelineOrderPaid, OccurredAt: t0},
		{Kind: TimelineCartMissing, OccurredAt: t0.Add(time.Second)},
	}
	SortTimeline(events)

	assert.Equal(t, TimelineOrderPaid, events[0].Kind)
	assert.Equal(t, TimelineAmountMismatch, events[1].Kind)
	assert.Equal(t, TimelineCartMissing, events[2].Kind)
}

func TestTimelineKind_Anomaly(t *testing.T) {
	assert.False(t, TimelineOrderPaid.Anomaly())
	assert.True(t, TimelineCartMissing.Anomaly())
	assert.True(t, TimelineCartEmpty.Anomaly())
	assert.True(t, TimelineAmountMismatch.Anomaly())
}
