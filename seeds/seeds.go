// Package seeds generates a deterministic catalog and behavior log for
// local development.
package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

// Writer is the part of the repository the seeder writes through.
type Writer interface {
	CountItems(ctx context.Context) (int, error)
	InsertItems(ctx context.Context, items []domain.Item) error
	AddEvents(ctx context.Context, events []domain.Event) error
}

type Options struct {
	Seed   uint64
	Items  int
	Users  int
	Events int
	// Now anchors generated timestamps.
	Now time.Time
}

func DefaultOptions() Options {
	return Options{Seed: 42, Items: 50, Users: 20, Events: 400}
}

var (
	categories   = []string{"electronics", "books", "kitchen", "outdoor", "toys"}
	eventKinds   = []string{"view", "click", "cart", "purchase"}
	eventWeights = []float64{0.6, 0.25, 0.1, 0.05}
)

// Setup inserts generated data unless the catalog already has items.
func Setup(ctx context.Context, w Writer, opts Options, log zerolog.Logger) error {
	count, err := w.CountItems(ctx)
	if err != nil {
		return fmt.Errorf("check items count: %w", err)
	}
	if count > 0 {
		log.Info().Int("items", count).Msg("database already seeded, skipping")
		return nil
	}

	items, events := Generate(opts)

	log.Info().Int("items", len(items)).Msg("inserting items")
	if err := w.InsertItems(ctx, items); err != nil {
		return fmt.Errorf("seed items: %w", err)
	}

	log.Info().Int("events", len(events)).Msg("inserting behavior events")
	if err := w.AddEvents(ctx, events); err != nil {
		return fmt.Errorf("seed events: %w", err)
	}

	log.Info().Msg("seeding complete")
	return nil
}

// Generate builds the catalog and event log for opts. The same options
// always produce the same data.
func Generate(opts Options) ([]domain.Item, []domain.Event) {
	if opts.Now.IsZero() {
		opts.Now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5eed))

	items := make([]domain.Item, 0, opts.Items)
	for i := range opts.Items {
		category := categories[i%len(categories)]
		items = append(items, domain.Item{
			ID:        ItemID(i + 1),
			Title:     fmt.Sprintf("%s item %d", category, i/len(categories)+1),
			Category:  category,
			CreatedAt: opts.Now.AddDate(0, 0, -rng.IntN(730)),
		})
	}

	if opts.Items == 0 || opts.Users == 0 {
		return items, nil
	}

	events := make([]domain.Event, 0, opts.Events)
	for range opts.Events {
		// Skewed draws so a few users and items dominate.
		user := skewed(rng, 1.5, opts.Users)
		item := skewed(rng, 1.3, opts.Items)

		events = append(events, domain.Event{
			UserID:     UserID(user),
			ItemID:     ItemID(item),
			Kind:       weightedChoice(rng, eventKinds, eventWeights),
			OccurredAt: opts.Now.Add(-time.Duration(rng.IntN(180*24)) * time.Hour),
			Count:      1,
		})
	}
	return items, events
}

func ItemID(n int) string { return fmt.Sprintf("item_%03d", n) }

func UserID(n int) string { return fmt.Sprintf("user_%03d", n) }

// skewed returns a value in [1, n] biased towards 1.
func skewed(rng *rand.Rand, exp float64, n int) int {
	v := int(math.Ceil(math.Pow(rng.Float64(), exp) * float64(n)))
	return max(1, min(v, n))
}

func weightedChoice(rng *rand.Rand, choices []string, weights []float64) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return choices[i]
		}
	}
	return choices[len(choices)-1]
}
