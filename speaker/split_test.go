package speaker

import (
	"math"
	"testing"

	apperrors "github.com/kbukum/speakerid/errors"
)

func TestSplitTime(t *testing.T) {
	tests := []struct {
		name         string
		start, end   float64
		text1, text2 string
		want         float64
	}{
		{"proportional", 10, 20, "abcd", "abcdef", 14},
		{"even", 0, 8, "ab", "cd", 4},
		{"runes not bytes", 0, 3, "été", "ab", 1.8},
		{"short first", 5, 6, "a", "abcdefghi", 5.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitTime(tt.start, tt.end, tt.text1, tt.text2)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSplitTime_Invalid(t *testing.T) {
	tests := []struct {
		name         string
		start, end   float64
		text1, text2 string
	}{
		{"empty first", 0, 10, "", "abc"},
		{"blank second", 0, 10, "abc", "   "},
		{"infinite bounds", 0, math.Inf(1), "a", "b"},
		{"nan bounds", math.NaN(), 10, "a", "b"},
		{"zero length", 5, 5, "a", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SplitTime(tt.start, tt.end, tt.text1, tt.text2)
			if !apperrors.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
