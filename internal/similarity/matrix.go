// Package similarity builds and persists the item-to-item similarity index
// used by the item-based collaborative filtering strategy.
package similarity

import "github.com/actuallystonmai/recommendation-engine/internal/domain"

// Matrix is the sparse user x item interaction matrix of one training run.
// Indices are dense, 0-based and assigned in first-seen order; they are not
// stable across runs.
type Matrix struct {
	Records   []domain.InteractionRecord
	UserIndex map[string]int
	ItemIndex map[string]int
}

// BuildMatrix indexes the given records. Records with a negative weight are
// clamped to zero.
func BuildMatrix(records []domain.InteractionRecord) *Matrix {
	m := &Matrix{
		Records:   make([]domain.InteractionRecord, 0, len(records)),
		UserIndex: make(map[string]int),
		ItemIndex: make(map[string]int),
	}
	for _, r := range records {
		if r.Weight < 0 {
			r.Weight = 0
		}
		if _, ok := m.UserIndex[r.UserID]; !ok {
			m.UserIndex[r.UserID] = len(m.UserIndex)
		}
		if _, ok := m.ItemIndex[r.ItemID]; !ok {
			m.ItemIndex[r.ItemID] = len(m.ItemIndex)
		}
		m.Records = append(m.Records, r)
	}
	return m
}

func (m *Matrix) Empty() bool {
	return m == nil || len(m.Records) == 0
}

func (m *Matrix) Users() int { return len(m.UserIndex) }
func (m *Matrix) Items() int { return len(m.ItemIndex) }

// ItemIDs returns item ids ordered by their matrix index.
func (m *Matrix) ItemIDs() []string {
	ids := make([]string, len(m.ItemIndex))
	for id, idx := range m.ItemIndex {
		ids[idx] = id
	}
	return ids
}

// ItemVectors materializes the dense matrix column-wise: one vector per item,
// with one component per user.
func (m *Matrix) ItemVectors() [][]float64 {
	vecs := make([][]float64, m.Items())
	for i := range vecs {
		vecs[i] = make([]float64, m.Users())
	}
	for _, r := range m.Records {
		vecs[m.ItemIndex[r.ItemID]][m.UserIndex[r.UserID]] += r.Weight
	}
	return vecs
}
