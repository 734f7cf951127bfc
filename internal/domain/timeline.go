package domain

import (
	"sort"
	"time"
)

// TimelineKind — тип записи в истории заказа.
type TimelineKind string

const (
	TimelineOrderPaid      TimelineKind = "OrderPaid"
	TimelineCartMissing    TimelineKind = "CartMissing"
	TimelineCartEmpty      TimelineKind = "CartEmpty"
	TimelineAmountMismatch TimelineKind = "AmountMismatch"
)

// Anomaly отмечает записи, которые требуют внимания оператора.
func (k TimelineKind) Anomaly() bool {
	switch k {
	case TimelineCartMissing, TimelineCartEmpty, TimelineAmountMismatch:
		return true
	}
	return false
}

// TimelineEvent описывает одну запись в истории заказа.
type TimelineEvent struct {
	OrderID    string
	Kind       TimelineKind
	Note       string
	OccurredAt time.Time
}

// SortTimeline упорядочивает события по времени, равные сохраняют порядок вставки.
func SortTimeline(events []TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
}
