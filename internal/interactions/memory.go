package interactions

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

// MemorySource is an in-process Source over raw events. Items seen in events
// join the catalog automatically.
type MemorySource struct {
	mu      sync.RWMutex
	catalog map[string]struct{}
	events  []domain.Event
}

func NewMemorySource(itemIDs []string, events []domain.Event) *MemorySource {
	m := &MemorySource{catalog: make(map[string]struct{}, len(itemIDs))}
	for _, id := range itemIDs {
		m.catalog[id] = struct{}{}
	}
	m.Add(events...)
	return m
}

// Add records more events. Events without a user or item are ignored.
func (m *MemorySource) Add(events ...domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		if e.UserID == "" || e.ItemID == "" {
			continue
		}
		m.catalog[e.ItemID] = struct{}{}
		m.events = append(m.events, e)
	}
}

// eventWeight counts an event at least once.
func eventWeight(e domain.Event) int64 {
	return int64(max(e.Count, 1))
}

func (m *MemorySource) ItemIDs(ctx context.Context, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	ids := make([]string, 0, len(m.catalog))
	for id := range m.catalog {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MemorySource) UserItems(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	seen := make(map[string]struct{})
	for _, e := range m.events {
		if e.UserID == userID {
			seen[e.ItemID] = struct{}{}
		}
	}
	m.mu.RUnlock()

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

type userItem struct {
	user, item string
}

// InteractionCounts returns one record per (user, item) pair with at least
// minInteractions events, ordered by user then item.
func (m *MemorySource) InteractionCounts(ctx context.Context, minInteractions int) ([]domain.InteractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	counts := make(map[userItem]int64)
	for _, e := range m.events {
		counts[userItem{e.UserID, e.ItemID}] += eventWeight(e)
	}
	m.mu.RUnlock()

	records := make([]domain.InteractionRecord, 0, len(counts))
	for k, n := range counts {
		if n < int64(minInteractions) {
			continue
		}
		records = append(records, domain.InteractionRecord{UserID: k.user, ItemID: k.item, Weight: float64(n)})
	}
	slices.SortFunc(records, func(a, b domain.InteractionRecord) int {
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})
	return records, nil
}

// ItemPopularity counts events per item. Catalog items without events are
// not listed.
func (m *MemorySource) ItemPopularity(ctx context.Context, topK int) ([]domain.PopularityEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	counts := make(map[string]int64)
	for _, e := range m.events {
		counts[e.ItemID] += eventWeight(e)
	}
	m.mu.RUnlock()

	entries := make([]domain.PopularityEntry, 0, len(counts))
	for id, n := range counts {
		entries = append(entries, domain.PopularityEntry{ItemID: id, Count: n})
	}
	SortPopularity(entries)
	if topK > 0 && len(entries) > topK {
		entries = entries[:topK]
	}
	return entries, nil
}

// Cooccurrence counts, for every item pair, the distinct users who
// interacted with both, keeping pairs shared by two or more users.
func (m *MemorySource) Cooccurrence(ctx context.Context) ([]domain.CooccurrencePair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	byUser := make(map[string]map[string]struct{})
	for _, e := range m.events {
		items, ok := byUser[e.UserID]
		if !ok {
			items = make(map[string]struct{})
			byUser[e.UserID] = items
		}
		items[e.ItemID] = struct{}{}
	}
	m.mu.RUnlock()

	type pair struct{ i, j string }
	counts := make(map[pair]int64)
	for _, items := range byUser {
		ids := make([]string, 0, len(items))
		for id := range items {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for a := 0; a < len(ids); a++ {
			for b := a + 1; b < len(ids); b++ {
				counts[pair{ids[a], ids[b]}]++
			}
		}
	}

	out := make([]domain.CooccurrencePair, 0)
	for p, n := range counts {
		if n >= 2 {
			out = append(out, domain.CooccurrencePair{ItemI: p.i, ItemJ: p.j, Count: n})
		}
	}
	sortPairs(out)
	return out, nil
}
