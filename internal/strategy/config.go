package strategy

import (
	"strconv"
	"strings"

	"github.com/actuallystonmai/recommendation-engine/internal/similarity"
)

const DefaultCachePath = "models/itemcf_similarity.json"

// Config is the explicit configuration shared by all strategies. Each
// strategy reads the fields it needs and ignores the rest.
type Config struct {
	// Seed makes Random deterministic when set.
	Seed                *int64  `json:"seed,omitempty" koanf:"seed"`
	PopularityThreshold int64   `json:"popularity_threshold" koanf:"popularity_threshold"`
	CachePath           string  `json:"cache_path" koanf:"cache_path"`
	SimilarityMethod    string  `json:"similarity_method" koanf:"similarity_method"`
	MinSimilarity       float64 `json:"min_similarity" koanf:"min_similarity"`
	TopNSimilar         int     `json:"top_n_similar" koanf:"top_n_similar"`
}

func DefaultConfig() Config {
	return Config{
		CachePath:        DefaultCachePath,
		SimilarityMethod: similarity.MethodCosine,
		MinSimilarity:    similarity.DefaultMinSimilarity,
		TopNSimilar:      similarity.DefaultTopN,
	}
}

// Key derives a deterministic cache key covering every field.
func (c Config) Key() string {
	var b strings.Builder
	b.WriteString("seed=")
	if c.Seed != nil {
		b.WriteString(strconv.FormatInt(*c.Seed, 10))
	} else {
		b.WriteString("none")
	}
	b.WriteString(";threshold=")
	b.WriteString(strconv.FormatInt(c.PopularityThreshold, 10))
	b.WriteString(";path=")
	b.WriteString(strconv.Quote(c.CachePath))
	b.WriteString(";method=")
	b.WriteString(strings.ToLower(c.SimilarityMethod))
	b.WriteString(";min_similarity=")
	b.WriteString(strconv.FormatFloat(c.MinSimilarity, 'g', -1, 64))
	b.WriteString(";top_n=")
	b.WriteString(strconv.Itoa(c.TopNSimilar))
	return b.String()
}

// Map renders the configuration for introspection.
func (c Config) Map() map[string]any {
	m := map[string]any{
		"popularity_threshold": c.PopularityThreshold,
		"cache_path":           c.CachePath,
		"similarity_method":    c.SimilarityMethod,
		"min_similarity":       c.MinSimilarity,
		"top_n_similar":        c.TopNSimilar,
	}
	if c.Seed != nil {
		m["seed"] = *c.Seed
	}
	return m
}

func Seed(v int64) *int64 { return &v }
