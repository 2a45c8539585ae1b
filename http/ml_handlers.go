package http

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"agronomist/agro"
	"agronomist/db"
	"agronomist/ml"
	"agronomist/monitoring"
)

type trainRequest struct {
	Features     []json.RawMessage `json:"features"`
	TargetYields []float64         `json:"target_yields"`
	ModelName    string            `json:"model_name"`
}

func (a *API) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inputs, err := ml.DecodeInputs(req.Features)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.trainer.Train(inputs, req.TargetYields, req.ModelName)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	a.recordTraining(result)
	respondJSON(w, http.StatusOK, result)
}

type trainSourceRequest struct {
	ModelName string `json:"model_name"`
}

func (a *API) handleTrainFromSource(w http.ResponseWriter, r *http.Request) {
	var req trainSourceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := a.trainer.TrainFromSource(req.ModelName)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	a.recordTraining(result)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     result.Status,
		"model_name": result.ModelName,
		"score":      result.Score,
		"rows":       result.Rows,
		"schema":     result.Schema,
		"source":     a.trainer.SourcePath(),
	})
}

type predictRequest struct {
	Features  []json.RawMessage `json:"features"`
	ModelName string            `json:"model_name"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Features) == 0 {
		respondError(w, http.StatusBadRequest, "no features given")
		return
	}

	inputs, err := ml.DecodeInputs(req.Features)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := req.ModelName
	if name == "" {
		name = ml.DefaultModelName
	}

	predictions, err := a.predictor.Predict(inputs, name)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}

	a.recordPredictions(name, predictions)

	values := make([]float64, len(predictions))
	sources := make([]string, len(predictions))
	for i, p := range predictions {
		values[i] = p.Value
		sources[i] = string(p.Source)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": values,
		"sources":     sources,
		"model_name":  name,
		"count":       len(predictions),
	})
}

func (a *API) handleListModels(w http.ResponseWriter, r *http.Request) {
	names := a.registry.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"models": names,
		"count":  len(names),
	})
}

type comprehensiveRequest struct {
	Crop            string  `json:"crop"`
	Region          string  `json:"region"`
	SoilType        string  `json:"soil_type"`
	TemperatureMin  float64 `json:"temperature_min"`
	TemperatureMax  float64 `json:"temperature_max"`
	Rainfall        float64 `json:"rainfall"`
	SoilPH          float64 `json:"soil_ph"`
	BaseTemperature float64 `json:"base_temperature"`
}

// handleComprehensive combines the agronomic formulas with the default
// yield model. The model sees the legacy feature vector
// [temperature, rainfall, pH, GDD, moisture]; if the default model was
// trained on labeled records the yield degrades to a tagged placeholder
// rather than failing the whole report.
func (a *API) handleComprehensive(w http.ResponseWriter, r *http.Request) {
	var req comprehensiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TemperatureMax < req.TemperatureMin {
		respondError(w, http.StatusBadRequest, "temperature_max must be at least temperature_min")
		return
	}

	base := req.BaseTemperature
	if base == 0 {
		base = 10.0
	}
	avgTemp := (req.TemperatureMin + req.TemperatureMax) / 2

	gdd := agro.GDD(req.TemperatureMin, req.TemperatureMax, base)
	et := agro.EstimateET(avgTemp)
	balance := agro.CalculateWaterBalance(req.Rainfall, et, 100.0)

	vector := []float64{avgTemp, req.Rainfall, req.SoilPH, gdd, balance.SoilMoisture}
	predictions, err := a.predictor.Predict([]ml.FeatureInput{ml.VectorInput(vector)}, ml.DefaultModelName)
	if err != nil {
		respondError(w, statusForError(err), err.Error())
		return
	}
	a.recordPredictions(ml.DefaultModelName, predictions)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"crop":      req.Crop,
		"region":    req.Region,
		"soil_type": req.SoilType,
		"agronomics": map[string]interface{}{
			"gdd":                gdd,
			"evapotranspiration": et,
			"water_balance":      balance,
		},
		"yield": map[string]interface{}{
			"value":  predictions[0].Value,
			"source": predictions[0].Source,
		},
		"computed_at": time.Now().UTC(),
	})
}

// recordTraining writes the audit row and broadcasts the event. Both are
// best effort; a failed audit never fails the request.
func (a *API) recordTraining(result *ml.TrainResult) {
	if err := db.SaveTrainingLog(result); err != nil {
		a.log.Warn("training audit write failed", zap.Error(err))
	}
	if a.events != nil {
		a.events.PublishTraining(monitoring.TrainingEvent{
			ModelName: result.ModelName,
			Schema:    string(result.Schema),
			Score:     result.Score,
			Rows:      result.Rows,
		})
	}
}

func (a *API) recordPredictions(name string, predictions []ml.Prediction) {
	if err := db.SavePredictions(name, predictions); err != nil {
		a.log.Warn("prediction audit write failed", zap.Error(err))
	}
	if a.events != nil {
		sources := make(map[string]int)
		for _, p := range predictions {
			sources[string(p.Source)]++
		}
		a.events.PublishPrediction(monitoring.PredictionEvent{
			ModelName: name,
			BatchSize: len(predictions),
			Sources:   sources,
		})
	}
}
