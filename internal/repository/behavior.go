package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

// Get items a user has interacted with
func (r *Repository) UserItems(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT item_id FROM user_behavior
		 WHERE user_id = $1
		 ORDER BY item_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query items for user %s: %w", userID, err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan user items: %w", err)
	}
	return items, nil
}

// Get per (user, item) event counts at or above the threshold
func (r *Repository) InteractionCounts(ctx context.Context, minInteractions int) ([]domain.InteractionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, item_id, COUNT(*) AS weight
		 FROM user_behavior
		 GROUP BY user_id, item_id
		 HAVING COUNT(*) >= $1
		 ORDER BY user_id, item_id`,
		max(minInteractions, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("query interaction counts: %w", err)
	}
	defer rows.Close()

	var records []domain.InteractionRecord
	for rows.Next() {
		var (
			rec    domain.InteractionRecord
			weight int64
		)
		if err := rows.Scan(&rec.UserID, &rec.ItemID, &weight); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		rec.Weight = float64(weight)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over interactions: %w", err)
	}
	return records, nil
}

// Get item pairs shared by at least two users
func (r *Repository) Cooccurrence(ctx context.Context) ([]domain.CooccurrencePair, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT b1.item_id, b2.item_id, COUNT(DISTINCT b1.user_id) AS cooccurrence
		 FROM user_behavior b1
		 JOIN user_behavior b2
		   ON b1.user_id = b2.user_id AND b1.item_id < b2.item_id
		 GROUP BY b1.item_id, b2.item_id
		 HAVING COUNT(DISTINCT b1.user_id) >= 2
		 ORDER BY b1.item_id, b2.item_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query cooccurrence: %w", err)
	}
	defer rows.Close()

	var pairs []domain.CooccurrencePair
	for rows.Next() {
		var p domain.CooccurrencePair
		if err := rows.Scan(&p.ItemI, &p.ItemJ, &p.Count); err != nil {
			return nil, fmt.Errorf("scan cooccurrence: %w", err)
		}
		pairs = append(pairs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over cooccurrence: %w", err)
	}
	return pairs, nil
}

// Record behavior events
func (r *Repository) AddEvents(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(events))
	for _, e := range events {
		for range max(e.Count, 1) {
			rows = append(rows, []any{e.UserID, e.ItemID, e.Kind, e.OccurredAt})
		}
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"user_behavior"},
		[]string{"user_id", "item_id", "event", "event_time"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy %d events: %w", len(rows), err)
	}
	return nil
}
