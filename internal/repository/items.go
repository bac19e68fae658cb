package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

// Get catalog item ids
func (r *Repository) ItemIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM items ORDER BY id LIMIT $1`,
		limitArg(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query item ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan item ids: %w", err)
	}
	return ids, nil
}

// Get the most interacted items
func (r *Repository) ItemPopularity(ctx context.Context, topK int) ([]domain.PopularityEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT item_id, COUNT(*) AS popularity
		 FROM user_behavior
		 GROUP BY item_id
		 ORDER BY popularity DESC, item_id ASC
		 LIMIT $1`,
		limitArg(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("query item popularity: %w", err)
	}
	defer rows.Close()

	var entries []domain.PopularityEntry
	for rows.Next() {
		var e domain.PopularityEntry
		if err := rows.Scan(&e.ItemID, &e.Count); err != nil {
			return nil, fmt.Errorf("scan popularity: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over popularity: %w", err)
	}
	return entries, nil
}

// Insert catalog items, skipping ids that already exist
func (r *Repository) InsertItems(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(
			`INSERT INTO items (id, title, category, created_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			it.ID, it.Title, it.Category, it.CreatedAt,
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert %d items: %w", len(items), err)
	}
	return nil
}

// Count catalog items
func (r *Repository) CountItems(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM items`,
	).Scan(&total)

	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return total, nil
}
