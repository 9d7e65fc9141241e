package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/riftstats/props-api/internal/logic"
	"github.com/riftstats/props-api/internal/models"
)

// PostPrediction evaluates a prop line for a player
// @Summary Predict a prop line
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body models.PredictionRequest true "Prop query"
// @Success 200 {object} models.PredictionResult
// @Failure 400 {object} map[string]string "Malformed query"
// @Router /predictions [post]
func (h *Handler) PostPrediction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.cache != nil {
		if cached := h.cache.Get(r.Context(), &req); cached != nil {
			h.jsonResponse(w, http.StatusOK, cached)
			return
		}
	}

	result, err := h.prediction.Predict(r.Context(), &req)
	if err != nil {
		h.logger.Errorw("Prediction failed", "error", err, "player", req.Player())
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.cache != nil {
		h.cache.Set(r.Context(), &req, result)
	}
	h.jsonResponse(w, http.StatusOK, result)
}

// PostPredictionCurve sweeps the prop value around the queried line
// @Summary Prediction sensitivity curve
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body models.PredictionRequest true "Prop query"
// @Param step query number false "Sweep step (default 0.5)"
// @Param span query number false "Sweep span around the line (default 3.0)"
// @Success 200 {array} models.CurvePoint
// @Failure 400 {object} map[string]string "Malformed query"
// @Router /predictions/curve [post]
func (h *Handler) PostPredictionCurve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var req models.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	step := queryFloat(r, "step", logic.DefaultCurveStep)
	span := queryFloat(r, "span", logic.DefaultCurveSpan)

	points, err := h.prediction.Curve(r.Context(), &req, step, span)
	if err != nil {
		h.logger.Errorw("Curve generation failed", "error", err, "player", req.Player())
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	h.jsonResponse(w, http.StatusOK, points)
}

// PostOutcome records a settled prop line for future retraining
// @Summary Ingest a settled outcome
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param outcome body models.PropOutcome true "Settled outcome"
// @Success 202 {object} map[string]string
// @Failure 400 {object} map[string]string "Malformed outcome"
// @Failure 503 {object} map[string]string "Queue saturated"
// @Router /outcomes [post]
func (h *Handler) PostOutcome(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var outcome models.PropOutcome
	if err := json.NewDecoder(r.Body).Decode(&outcome); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validator.Struct(&outcome); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid outcome: "+err.Error())
		return
	}

	if !h.pool.Enqueue(&outcome) {
		h.errorResponse(w, http.StatusServiceUnavailable, "Outcome queue saturated")
		return
	}
	h.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}
