package mathutil

import (
	"math"
	"testing"
)

func TestSafeDivide(t *testing.T) {
	tests := []struct {
		name     string
		num      float64
		den      float64
		fallback float64
		expected float64
	}{
		{"Regular division", 1, 4, 0, 0.25},
		{"Zero denominator", 1, 0, 0, 0},
		{"Zero over zero", 0, 0, -1, -1},
		{"NaN numerator", math.NaN(), 2, 0, 0},
		{"Infinite numerator", math.Inf(1), 2, 7, 7},
		{"Negative result", -3, 2, 0, -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SafeDivide(tt.num, tt.den, tt.fallback)
			if result != tt.expected {
				t.Errorf("SafeDivide(%v, %v, %v) = %v, expected %v", tt.num, tt.den, tt.fallback, result, tt.expected)
			}
		})
	}
}

func TestSafeLog(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"One", 1, 0},
		{"E", math.E, 1},
		{"Zero", 0, 0},
		{"Negative", -2, 0},
		{"NaN", math.NaN(), 0},
		{"Positive infinity", math.Inf(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SafeLog(tt.input, 0)
			if math.Abs(result-tt.expected) > 1e-12 {
				t.Errorf("SafeLog(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsOpenProbability(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected bool
	}{
		{"Zero", 0, false},
		{"One", 1, false},
		{"Half", 0.5, true},
		{"Tiny", 1e-12, true},
		{"Negative", -0.1, false},
		{"NaN", math.NaN(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsOpenProbability(tt.input); result != tt.expected {
				t.Errorf("IsOpenProbability(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestProbabilityOr(t *testing.T) {
	if got := ProbabilityOr(0.3, 0); got != 0.3 {
		t.Errorf("ProbabilityOr(0.3, 0) = %v, expected 0.3", got)
	}
	if got := ProbabilityOr(1, 0); got != 0 {
		t.Errorf("ProbabilityOr(1, 0) = %v, expected 0", got)
	}
	if got := ProbabilityOr(math.NaN(), 0); got != 0 {
		t.Errorf("ProbabilityOr(NaN, 0) = %v, expected 0", got)
	}
}

func TestFraction(t *testing.T) {
	if got := Fraction(0, 0); got != 0 {
		t.Errorf("Fraction(0, 0) = %v, expected 0", got)
	}
	if got := Fraction(1, 4); got != 0.25 {
		t.Errorf("Fraction(1, 4) = %v, expected 0.25", got)
	}
}

func TestCalculatePercentage(t *testing.T) {
	if got := CalculatePercentage(25, 200); got != 12.5 {
		t.Errorf("CalculatePercentage(25, 200) = %v, expected 12.5", got)
	}
	if got := CalculatePercentage(25, 0); got != 0 {
		t.Errorf("CalculatePercentage(25, 0) = %v, expected 0", got)
	}
}

func TestWithinTolerance(t *testing.T) {
	if !WithinTolerance(1.0, 1.05, 0.1) {
		t.Error("expected 1.0 and 1.05 to be within 0.1")
	}
	if WithinTolerance(1.0, 1.2, 0.1) {
		t.Error("expected 1.0 and 1.2 to differ by more than 0.1")
	}
	if !ProbabilitiesClose(0.1+0.2, 0.3) {
		t.Error("expected 0.1+0.2 to be close to 0.3")
	}
}
