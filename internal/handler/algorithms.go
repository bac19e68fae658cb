package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/actuallystonmai/recommendation-engine/internal/strategy"
)

// GET /api/v1/recommend/algorithms
func (h *Handler) ListAlgorithms(w http.ResponseWriter, r *http.Request) {
	names := h.service.ListAvailableAlgorithms()
	out := make([]AlgorithmSummary, 0, len(names))
	for _, name := range names {
		info := h.service.AlgorithmInfo(name)
		out = append(out, AlgorithmSummary{
			Name:             name,
			Algorithm:        info.Algorithm,
			IsFitted:         info.IsFitted,
			RequiresTraining: info.RequiresTraining,
		})
	}

	writeJSON(w, http.StatusOK, AlgorithmsResponse{
		Default:    h.service.DefaultAlgorithm(),
		Algorithms: out,
	})
}

// GET /api/v1/recommend/algorithms/{algorithm}
func (h *Handler) GetAlgorithmInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "algorithm")
	if !h.service.KnownAlgorithm(name) {
		unknownAlgorithm(w, name)
		return
	}
	writeJSON(w, http.StatusOK, h.service.AlgorithmInfo(name))
}

// POST /api/v1/recommend/train/{algorithm}
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "algorithm")
	if !h.service.KnownAlgorithm(name) {
		unknownAlgorithm(w, name)
		return
	}

	// Body is optional
	var req TrainRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "min_interactions must be at least 1")
		return
	}

	params := strategy.DefaultTrainParams()
	if req.MinInteractions != nil {
		params.MinInteractions = *req.MinInteractions
	}
	if req.SaveCache != nil {
		params.SaveCache = *req.SaveCache
	}

	trained, err := h.service.TrainModel(r.Context(), name, params)
	if err != nil {
		h.log.Error().Err(err).Str("algorithm", name).Msg("training failed")
		writeError(w, http.StatusInternalServerError, "training_failed", "Model training failed")
		return
	}

	info := h.service.AlgorithmInfo(name)
	resp := TrainResponse{
		Algorithm: info.Algorithm,
		Trained:   trained,
		IsFitted:  info.IsFitted,
	}
	switch {
	case !trained:
		resp.Message = "algorithm does not require training"
	case !info.IsFitted:
		resp.Message = "no interaction data, model left untrained"
	default:
		resp.Message = "model trained"
	}
	writeJSON(w, http.StatusOK, resp)
}
