package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	insertTimelineSQL = `INSERT INTO timeline_events (order_id, kind, note, occurred_at) VALUES ($1, $2, $3, $4)`
	selectTimelineSQL = `SELECT kind, note, occurred_at FROM timeline_events WHERE order_id = $1 ORDER BY occurred_at, id`
)

type timelineRepository struct {
	db *sql.DB
}

// NewTimelineRepository возвращает историю заказов поверх таблицы timeline_events.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{db: store.DB()}
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := r.db.ExecContext(opCtx, insertTimelineSQL, event.OrderID, string(event.Kind), event.Note, at.UTC()); err != nil {
		return fmt.Errorf("timeline %s: insert %s: %w", event.OrderID, event.Kind, err)
	}
	return nil
}

func (r *timelineRepository) List(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(opCtx, selectTimelineSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("timeline %s: query: %w", orderID, err)
	}
	defer rows.Close()

	history := []domain.TimelineEvent{}
	for rows.Next() {
		ev := domain.TimelineEvent{OrderID: orderID}
		var kind string
		if err := rows.Scan(&kind, &ev.Note, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("timeline %s: scan: %w", orderID, err)
		}
		ev.Kind = domain.TimelineKind(kind)
		ev.OccurredAt = ev.OccurredAt.UTC()
		history = append(history, ev)
	}
	return history, rows.Err()
}
