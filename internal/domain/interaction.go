package domain

import "time"

// Event is a single raw behavior row read from the external source.
type Event struct {
	UserID     string    `json:"user_id"`
	ItemID     string    `json:"item_id"`
	Kind       string    `json:"event"`
	OccurredAt time.Time `json:"event_time"`
	Count      int       `json:"count"`
}

// InteractionRecord is the aggregated weight of one (user, item) pair.
type InteractionRecord struct {
	UserID string  `json:"user_id"`
	ItemID string  `json:"item_id"`
	Weight float64 `json:"weight"`
}

type PopularityEntry struct {
	ItemID string `json:"item_id"`
	Count  int64  `json:"count"`
}

// CooccurrencePair counts distinct users who interacted with both items.
// ItemI always sorts before ItemJ.
type CooccurrencePair struct {
	ItemI string `json:"item_i"`
	ItemJ string `json:"item_j"`
	Count int64  `json:"count"`
}
