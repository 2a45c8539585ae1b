package agro

import "math"

// Thresholds for extreme-event counting.
const (
	extremeHeatC     = 35.0
	droughtRainfallM = 50.0
)

// ClimateStats summarizes an observed climate series.
type ClimateStats struct {
	MeanTemp        float64 `json:"mean_temp"`
	TempStd         float64 `json:"temp_std"`
	MeanRainfall    float64 `json:"mean_rainfall"`
	RainfallStd     float64 `json:"rainfall_std"`
	ExtremeHeatDays int     `json:"extreme_heat_days"`
	DroughtRisk     float64 `json:"drought_risk"`
}

// ClimateProjection summarizes the scaled future series.
type ClimateProjection struct {
	MeanTemp        float64 `json:"projected_mean_temp"`
	MeanRainfall    float64 `json:"projected_rainfall"`
	ExtremeHeatDays int     `json:"projected_extreme_heat"`
	DroughtRisk     float64 `json:"projected_drought_risk"`
}

// RiskChanges compares projected risk against the observed baseline.
type RiskChanges struct {
	HeatStressIncrease  float64 `json:"heat_stress_increase"`
	DroughtRiskIncrease float64 `json:"drought_risk_increase"`
	TemperatureIncrease float64 `json:"temperature_increase"`
	RainfallChange      float64 `json:"rainfall_change"`
}

// ClimateRisk is the full assessment.
type ClimateRisk struct {
	Current   ClimateStats      `json:"current"`
	Projected ClimateProjection `json:"projected"`
	Changes   RiskChanges       `json:"risk_changes"`
}

// AssessClimateRisk projects a historical temperature and rainfall series
// under a warming factor: temperatures scale by the factor, rainfall by
// (2 - factor), and extreme-event frequencies are recounted.
func AssessClimateRisk(temperatures, rainfall []float64, factor float64) ClimateRisk {
	current := ClimateStats{
		MeanTemp:        seriesMean(temperatures),
		TempStd:         seriesStd(temperatures),
		MeanRainfall:    seriesMean(rainfall),
		RainfallStd:     seriesStd(rainfall),
		ExtremeHeatDays: countAbove(temperatures, extremeHeatC),
		DroughtRisk:     fractionBelow(rainfall, droughtRainfallM),
	}

	futureTemps := scaleSeries(temperatures, factor)
	futureRain := scaleSeries(rainfall, 2-factor)

	projected := ClimateProjection{
		MeanTemp:        seriesMean(futureTemps),
		MeanRainfall:    seriesMean(futureRain),
		ExtremeHeatDays: countAbove(futureTemps, extremeHeatC),
		DroughtRisk:     fractionBelow(futureRain, droughtRainfallM),
	}

	baseline := current.ExtremeHeatDays
	if baseline < 1 {
		baseline = 1
	}

	return ClimateRisk{
		Current:   current,
		Projected: projected,
		Changes: RiskChanges{
			HeatStressIncrease:  float64(projected.ExtremeHeatDays-current.ExtremeHeatDays) / float64(baseline),
			DroughtRiskIncrease: projected.DroughtRisk - current.DroughtRisk,
			TemperatureIncrease: projected.MeanTemp - current.MeanTemp,
			RainfallChange:      projected.MeanRainfall - current.MeanRainfall,
		},
	}
}

func seriesMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func seriesStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := seriesMean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func countAbove(values []float64, threshold float64) int {
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return count
}

func fractionBelow(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v < threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

func scaleSeries(values []float64, factor float64) []float64 {
	scaled := make([]float64, len(values))
	for i, v := range values {
		scaled[i] = v * factor
	}
	return scaled
}
