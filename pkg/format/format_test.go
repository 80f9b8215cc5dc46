package format

import "testing"

func TestProbability(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0.000"},
		{1, "1.000"},
		{0.81234, "0.812"},
		{0.0005, "0.001"},
	}
	for _, tt := range tests {
		if got := Probability(tt.input); got != tt.expected {
			t.Errorf("Probability(%v) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestSampleSize(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{7630, "7,630"},
		{10900, "10,900"},
		{12345.6, "12,346"},
		{512, "512"},
	}
	for _, tt := range tests {
		if got := SampleSize(tt.input); got != tt.expected {
			t.Errorf("SampleSize(%v) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestOptionalSampleSize(t *testing.T) {
	if got := OptionalSampleSize(nil); got != "n/a" {
		t.Errorf("OptionalSampleSize(nil) = %q, expected n/a", got)
	}
	n := 20000.0
	if got := OptionalSampleSize(&n); got != "20,000" {
		t.Errorf("OptionalSampleSize(20000) = %q, expected 20,000", got)
	}
	if got := PlainSampleSize(&n); got != "20000.0" {
		t.Errorf("PlainSampleSize(20000) = %q, expected 20000.0", got)
	}
	if got := PlainSampleSize(nil); got != "n/a" {
		t.Errorf("PlainSampleSize(nil) = %q, expected n/a", got)
	}
}
