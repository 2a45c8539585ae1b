package agro

import "math"

// WaterBalance is a single-period soil water bucket result.
type WaterBalance struct {
	SoilMoisture float64 `json:"soil_moisture"`
	WaterStress  float64 `json:"water_stress"`
	Deficit      float64 `json:"deficit"`
	Surplus      float64 `json:"surplus"`
}

// CalculateWaterBalance computes the soil water balance for one period.
// Stress is the unmet fraction of evapotranspiration demand.
func CalculateWaterBalance(rainfall, evapotranspiration, soilCapacity float64) WaterBalance {
	available := rainfall - evapotranspiration

	stress := 0.0
	if evapotranspiration > 0 {
		stress = math.Max(0, evapotranspiration-rainfall) / evapotranspiration
	}

	return WaterBalance{
		SoilMoisture: math.Min(soilCapacity, math.Max(0, available)),
		WaterStress:  stress,
		Deficit:      math.Max(0, evapotranspiration-rainfall),
		Surplus:      math.Max(0, rainfall-evapotranspiration-soilCapacity),
	}
}
