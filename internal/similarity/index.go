package similarity

import "time"

// FormatVersion tags persisted index files. Files carrying any other version
// are rejected on load.
const FormatVersion = 1

type Neighbor struct {
	ItemID string
	Score  float32
}

type Metadata struct {
	BuildID       string    `json:"build_id"`
	Method        string    `json:"method"`
	MinSimilarity float64   `json:"min_similarity"`
	TopN          int       `json:"top_n"`
	UserCount     int       `json:"user_count"`
	ItemCount     int       `json:"item_count"`
	TrainedAt     time.Time `json:"trained_at"`
}

// Index maps every trained item to its top-N neighbors, sorted by score
// descending. An Index is never mutated after it is built; retraining
// produces a new one.
type Index struct {
	Meta      Metadata
	Neighbors map[string][]Neighbor
	ItemIndex map[string]int
	UserIndex map[string]int
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.Neighbors)
}

// Has reports whether the item took part in training.
func (x *Index) Has(itemID string) bool {
	if x == nil {
		return false
	}
	_, ok := x.Neighbors[itemID]
	return ok
}

// Similar returns at most k neighbors of itemID. The returned slice is shared
// with the index and must not be modified.
func (x *Index) Similar(itemID string, k int) []Neighbor {
	if x == nil || k <= 0 {
		return nil
	}
	ns := x.Neighbors[itemID]
	if len(ns) > k {
		ns = ns[:k]
	}
	return ns
}

// NeighborCount is the total number of stored (item, neighbor) pairs.
func (x *Index) NeighborCount() int {
	if x == nil {
		return 0
	}
	n := 0
	for _, ns := range x.Neighbors {
		n += len(ns)
	}
	return n
}
