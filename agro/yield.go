package agro

import "math"

// YieldEstimate is a closed-form yield guess used when no trained model
// is available.
type YieldEstimate struct {
	EstimatedYield float64 `json:"estimated_yield"`
	YieldScore     float64 `json:"yield_score"`
	TempScore      float64 `json:"temperature_score"`
	RainfallScore  float64 `json:"rainfall_score"`
	PHScore        float64 `json:"soil_ph_score"`
	Confidence     float64 `json:"confidence"`
}

// HeuristicYield estimates yield in tons/hectare from basic factors:
// temperature optimal near 25°C, rainfall saturating at 500mm, pH optimal
// near 7. Each factor scores in [0,1] and the average scales a 5 t/ha
// ceiling.
func HeuristicYield(avgTemp, rainfall, soilPH float64) YieldEstimate {
	tempScore := 1.0 - math.Min(1.0, math.Abs(avgTemp-25)/20)
	rainfallScore := math.Min(1.0, rainfall/500)
	phScore := 1.0 - math.Min(1.0, math.Abs(soilPH-7)/3)

	overall := (tempScore + rainfallScore + phScore) / 3

	return YieldEstimate{
		EstimatedYield: overall * 5.0,
		YieldScore:     overall,
		TempScore:      tempScore,
		RainfallScore:  rainfallScore,
		PHScore:        phScore,
		Confidence:     0.6 + overall*0.3,
	}
}
