package similarity

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMinSimilarity = 0.1
	DefaultTopN          = 50
)

type Options struct {
	Metric        Metric
	MinSimilarity float64
	TopN          int
	// Workers bounds the goroutines scoring item rows. Zero means GOMAXPROCS.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Metric == nil {
		o.Metric = Cosine{}
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Compute scores every pair of item columns of m and keeps, per item, the
// TopN other items whose score is at least MinSimilarity. Rows are computed
// concurrently; the result does not depend on the worker count.
func Compute(ctx context.Context, m *Matrix, opts Options) (*Index, error) {
	opts = opts.withDefaults()

	itemIDs := m.ItemIDs()
	vectors := m.ItemVectors()
	pair := opts.Metric.Pairwise(vectors)

	rows := make([][]Neighbor, len(itemIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range itemIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = topNeighbors(i, itemIDs, pair, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &Index{
		Meta: Metadata{
			BuildID:       uuid.NewString(),
			Method:        opts.Metric.Name(),
			MinSimilarity: opts.MinSimilarity,
			TopN:          opts.TopN,
			UserCount:     m.Users(),
			ItemCount:     m.Items(),
			TrainedAt:     time.Now().UTC(),
		},
		Neighbors: make(map[string][]Neighbor, len(itemIDs)),
		ItemIndex: copyIndex(m.ItemIndex),
		UserIndex: copyIndex(m.UserIndex),
	}
	for i, id := range itemIDs {
		idx.Neighbors[id] = rows[i]
	}
	return idx, nil
}

func topNeighbors(i int, itemIDs []string, pair func(i, j int) float64, opts Options) []Neighbor {
	out := make([]Neighbor, 0)
	for j := range itemIDs {
		if j == i {
			continue
		}
		score := float32(pair(i, j))
		// compare the stored precision so loaded indexes keep the invariant
		if float64(score) < opts.MinSimilarity {
			continue
		}
		out = append(out, Neighbor{ItemID: itemIDs[j], Score: score})
	}
	sortNeighbors(out)
	if len(out) > opts.TopN {
		trimmed := make([]Neighbor, opts.TopN)
		copy(trimmed, out)
		out = trimmed
	}
	return out
}

// sortNeighbors orders by score descending, then item id ascending.
func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(a, b int) bool {
		if ns[a].Score != ns[b].Score {
			return ns[a].Score > ns[b].Score
		}
		return ns[a].ItemID < ns[b].ItemID
	})
}

func copyIndex(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
