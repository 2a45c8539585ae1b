package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"agronomist/agro"
	"agronomist/ml"
	"agronomist/monitoring"
)

// API holds the services behind the HTTP surface. It is wired once at
// startup and passed around explicitly.
type API struct {
	trainer   *ml.Trainer
	predictor *ml.Predictor
	registry  *ml.Registry
	events    *monitoring.Hub
	log       *zap.Logger
}

// NewAPI wires the handlers to their services. The event hub is optional.
func NewAPI(trainer *ml.Trainer, predictor *ml.Predictor, registry *ml.Registry, events *monitoring.Hub, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{trainer: trainer, predictor: predictor, registry: registry, events: events, log: logger}
}

// Register attaches all routes to the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("POST /api/compute/gdd", a.handleGDD)
	mux.HandleFunc("POST /api/compute/water-balance", a.handleWaterBalance)
	mux.HandleFunc("POST /api/compute/climate-risk", a.handleClimateRisk)
	mux.HandleFunc("POST /api/ml/train", a.handleTrain)
	mux.HandleFunc("POST /api/ml/train/source", a.handleTrainFromSource)
	mux.HandleFunc("POST /api/ml/predict", a.handlePredict)
	mux.HandleFunc("GET /api/models", a.handleListModels)
	mux.HandleFunc("POST /api/predict/comprehensive", a.handleComprehensive)
	if a.events != nil {
		mux.HandleFunc("GET /api/ws/events", a.events.HandleWebSocket)
	}
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"models":    len(a.registry.List()),
		"timestamp": time.Now().UTC(),
	})
}

type gddRequest struct {
	TemperatureMin  float64  `json:"temperature_min"`
	TemperatureMax  float64  `json:"temperature_max"`
	BaseTemperature *float64 `json:"base_temperature,omitempty"`
}

func (a *API) handleGDD(w http.ResponseWriter, r *http.Request) {
	var req gddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	base := 10.0
	if req.BaseTemperature != nil {
		base = *req.BaseTemperature
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"gdd":              agro.GDD(req.TemperatureMin, req.TemperatureMax, base),
		"temperature_min":  req.TemperatureMin,
		"temperature_max":  req.TemperatureMax,
		"base_temperature": base,
		"computed_at":      time.Now().UTC(),
	})
}

type waterBalanceRequest struct {
	Rainfall           float64  `json:"rainfall"`
	Evapotranspiration float64  `json:"evapotranspiration"`
	SoilCapacity       *float64 `json:"soil_capacity,omitempty"`
}

func (a *API) handleWaterBalance(w http.ResponseWriter, r *http.Request) {
	var req waterBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rainfall < 0 || req.Evapotranspiration < 0 {
		respondError(w, http.StatusBadRequest, "rainfall and evapotranspiration must be non-negative")
		return
	}
	capacity := 100.0
	if req.SoilCapacity != nil {
		capacity = *req.SoilCapacity
	}

	balance := agro.CalculateWaterBalance(req.Rainfall, req.Evapotranspiration, capacity)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"soil_moisture": balance.SoilMoisture,
		"water_stress":  balance.WaterStress,
		"deficit":       balance.Deficit,
		"surplus":       balance.Surplus,
		"inputs": map[string]float64{
			"rainfall":           req.Rainfall,
			"evapotranspiration": req.Evapotranspiration,
			"soil_capacity":      capacity,
		},
		"computed_at": time.Now().UTC(),
	})
}

type climateRiskRequest struct {
	HistoricalTemperatures []float64 `json:"historical_temperatures"`
	HistoricalRainfall     []float64 `json:"historical_rainfall"`
	ClimateChangeFactor    *float64  `json:"climate_change_factor,omitempty"`
}

func (a *API) handleClimateRisk(w http.ResponseWriter, r *http.Request) {
	var req climateRiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.HistoricalTemperatures) == 0 || len(req.HistoricalRainfall) == 0 {
		respondError(w, http.StatusBadRequest, "historical series are required")
		return
	}
	factor := 1.02
	if req.ClimateChangeFactor != nil {
		factor = *req.ClimateChangeFactor
	}

	risk := agro.AssessClimateRisk(req.HistoricalTemperatures, req.HistoricalRainfall, factor)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"current":      risk.Current,
		"projected":    risk.Projected,
		"risk_changes": risk.Changes,
		"computed_at":  time.Now().UTC(),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps the ml error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ml.ErrModelNotFound), errors.Is(err, ml.ErrDataSourceMissing):
		return http.StatusNotFound
	case errors.Is(err, ml.ErrInvalidTrainingSet):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
