package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
	"github.com/actuallystonmai/recommendation-engine/internal/service"
)

// GET /api/v1/recommend/{userID}
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid user_id parameter")
		return
	}

	// Parse and validate k
	k, ok := intParam(r, "k", 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid k parameter")
		return
	}
	filter, ok := boolParam(r, "filter_interacted", true)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid filter_interacted parameter")
		return
	}

	q := recommendQuery{
		Algorithm:        r.URL.Query().Get("algorithm"),
		K:                k,
		FilterInteracted: filter,
	}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "k must be between 1 and 100")
		return
	}

	algorithm := h.service.DefaultAlgorithm()
	if q.Algorithm != "" {
		algorithm = q.Algorithm
	}

	recs := h.service.RecommendWithScores(r.Context(), service.Request{
		UserID:           userID,
		Algorithm:        algorithm,
		K:                q.K,
		FilterInteracted: q.FilterInteracted,
	})

	resp := RecommendationResponse{
		UserID:          userID,
		Algorithm:       h.service.Resolve(algorithm),
		Recommendations: recs,
		Metadata: RecommendationMeta{
			K:                q.K,
			FilterInteracted: q.FilterInteracted,
			GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
			TotalCount:       len(recs),
		},
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/recommend/similar/{itemID}
func (h *Handler) GetSimilarItems(w http.ResponseWriter, r *http.Request) {
	k, ok := intParam(r, "k", 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid k parameter")
		return
	}

	q := similarQuery{ItemID: chi.URLParam(r, "itemID"), K: k}
	if err := h.validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "k must be between 1 and 50")
		return
	}

	similar, err := h.service.SimilarItems(r.Context(), q.ItemID, q.K)
	if err != nil {
		// Model not trained yet
		if errors.Is(err, domain.ErrModelNotFitted) {
			writeError(w, http.StatusConflict, "model_not_fitted",
				"Item similarity model is not trained, call the train endpoint first")
			return
		}
		if errors.Is(err, domain.ErrAlgorithmNotFound) {
			writeError(w, http.StatusNotFound, "algorithm_not_found", "Item similarity is not available")
			return
		}
		// Request timeout
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeError(w, http.StatusServiceUnavailable, "request_timeout",
				"Request timed out, please try again")
			return
		}
		h.log.Error().Err(err).Str("item_id", q.ItemID).Msg("similar items")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	if similar == nil {
		similar = []domain.SimilarItem{}
	}
	writeJSON(w, http.StatusOK, SimilarItemsResponse{ItemID: q.ItemID, Similar: similar})
}

func unknownAlgorithm(w http.ResponseWriter, name string) {
	writeError(w, http.StatusBadRequest, "unknown_algorithm",
		fmt.Sprintf("Algorithm %q is not registered", name))
}
