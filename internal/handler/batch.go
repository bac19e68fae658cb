package handler

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
	"github.com/actuallystonmai/recommendation-engine/internal/service"
)

const maxBodyBytes = 1 << 20

// POST /api/v1/recommend/batch
func (h *Handler) PostBatchRecommendations(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "user_ids must hold 1 to 1000 ids and k must be between 1 and 100")
		return
	}

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = h.service.DefaultAlgorithm()
	}
	k := req.K
	if k == 0 {
		k = 10
	}
	filter := true
	if req.FilterInteracted != nil {
		filter = *req.FilterInteracted
	}

	// Call service
	byUser := h.service.BatchRecommend(r.Context(), req.UserIDs, service.Request{
		Algorithm:        algorithm,
		K:                k,
		FilterInteracted: filter,
	})

	results := make([]domain.BatchUserResult, 0, len(req.UserIDs))
	seen := make(map[string]bool, len(req.UserIDs))
	for _, uid := range req.UserIDs {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		results = append(results, domain.BatchUserResult{UserID: uid, Recommendations: byUser[uid]})
	}

	writeJSON(w, http.StatusOK, BatchResponse{
		Algorithm: h.service.Resolve(algorithm),
		Results:   results,
		Total:     len(results),
	})
}
