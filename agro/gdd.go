// Package agro provides the agronomic formulas used by the prediction
// service: growing degree days, evapotranspiration, water balance and
// climate-risk projection. All functions are pure.
package agro

import "math"

// GDD calculates Growing Degree Days from a daily temperature range.
func GDD(tempMin, tempMax, baseTemp float64) float64 {
	avg := (tempMin + tempMax) / 2
	return math.Max(0, avg-baseTemp)
}

// AccumulatedGDD sums GDD over a season of [min, max] temperature pairs.
func AccumulatedGDD(dailyTemps [][2]float64, baseTemp float64) float64 {
	var total float64
	for _, day := range dailyTemps {
		total += GDD(day[0], day[1], baseTemp)
	}
	return total
}

// PenmanET is a simplified Penman-Monteith reference evapotranspiration
// estimate in mm/day. Wind speed is measured at 10m and adjusted to 2m.
func PenmanET(temp, humidity, windSpeed, radiation float64) float64 {
	// Slope of the saturation vapor pressure curve.
	delta := 4098 * (0.6108 * math.Exp(17.27*temp/(temp+237.3))) / math.Pow(temp+237.3, 2)

	// Psychrometric constant.
	const gamma = 0.665

	u2 := windSpeed * 4.87 / math.Log(67.8*10-5.42)

	et0 := (0.408*delta*radiation + gamma*900/(temp+273)*u2*(0.01*humidity)) /
		(delta + gamma*(1+0.34*u2))

	return math.Max(0, et0)
}

// EstimateET is the crude temperature-only ET estimate used by the
// comprehensive prediction when no weather detail is available.
func EstimateET(avgTemp float64) float64 {
	return math.Max(0, avgTemp*0.15)
}
