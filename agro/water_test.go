package agro

import "testing"

func TestCalculateWaterBalanceDeficit(t *testing.T) {
	wb := CalculateWaterBalance(30, 60, 100)
	if wb.SoilMoisture != 0 {
		t.Fatalf("expected 0 moisture, got %v", wb.SoilMoisture)
	}
	if wb.Deficit != 30 {
		t.Fatalf("expected deficit 30, got %v", wb.Deficit)
	}
	if wb.WaterStress != 0.5 {
		t.Fatalf("expected stress 0.5, got %v", wb.WaterStress)
	}
	if wb.Surplus != 0 {
		t.Fatalf("expected no surplus, got %v", wb.Surplus)
	}
}

func TestCalculateWaterBalanceSurplus(t *testing.T) {
	wb := CalculateWaterBalance(200, 50, 100)
	if wb.SoilMoisture != 100 {
		t.Fatalf("moisture must cap at capacity, got %v", wb.SoilMoisture)
	}
	if wb.Surplus != 50 {
		t.Fatalf("expected surplus 50, got %v", wb.Surplus)
	}
	if wb.WaterStress != 0 {
		t.Fatalf("expected no stress, got %v", wb.WaterStress)
	}
}

func TestCalculateWaterBalanceZeroET(t *testing.T) {
	wb := CalculateWaterBalance(0, 0, 100)
	if wb.WaterStress != 0 {
		t.Fatalf("zero demand must give zero stress, got %v", wb.WaterStress)
	}
}
