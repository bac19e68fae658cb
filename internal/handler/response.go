package handler

import "github.com/actuallystonmai/recommendation-engine/internal/domain"

type RecommendationResponse struct {
	UserID          string                  `json:"user_id"`
	Algorithm       string                  `json:"algorithm"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	Metadata        RecommendationMeta      `json:"metadata"`
}

type RecommendationMeta struct {
	K                int    `json:"k"`
	FilterInteracted bool   `json:"filter_interacted"`
	GeneratedAt      string `json:"generated_at"`
	TotalCount       int    `json:"total_count"`
}

type BatchRequest struct {
	UserIDs          []string `json:"user_ids" validate:"required,min=1,max=1000,dive,required"`
	Algorithm        string   `json:"algorithm"`
	K                int      `json:"k" validate:"omitempty,min=1,max=100"`
	FilterInteracted *bool    `json:"filter_interacted"`
}

type BatchResponse struct {
	Algorithm string                   `json:"algorithm"`
	Results   []domain.BatchUserResult `json:"results"`
	Total     int                      `json:"total"`
}

type TrainRequest struct {
	MinInteractions *int  `json:"min_interactions" validate:"omitempty,min=1"`
	SaveCache       *bool `json:"save_cache"`
}

type TrainResponse struct {
	Algorithm string `json:"algorithm"`
	Trained   bool   `json:"trained"`
	IsFitted  bool   `json:"is_fitted"`
	Message   string `json:"message"`
}

type AlgorithmSummary struct {
	Name             string `json:"name"`
	Algorithm        string `json:"algorithm"`
	IsFitted         bool   `json:"is_fitted"`
	RequiresTraining bool   `json:"requires_training"`
}

type AlgorithmsResponse struct {
	Default    string             `json:"default"`
	Algorithms []AlgorithmSummary `json:"algorithms"`
}

type SimilarItemsResponse struct {
	ItemID  string               `json:"item_id"`
	Similar []domain.SimilarItem `json:"similar_items"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
