package domain

type ScoredItem struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

type Recommendation struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`
}

type SimilarItem struct {
	ItemID          string  `json:"item_id"`
	SimilarityScore float64 `json:"similarity_score"`
}

type AlgorithmInfo struct {
	Algorithm        string         `json:"algorithm"`
	IsFitted         bool           `json:"is_fitted"`
	RequiresTraining bool           `json:"requires_training"`
	Config           map[string]any `json:"config"`
}

type BatchUserResult struct {
	UserID          string   `json:"user_id"`
	Recommendations []string `json:"recommendations"`
}
