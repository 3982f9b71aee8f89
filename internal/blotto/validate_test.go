package blotto

import (
	"errors"
	"math"
	"testing"
)

func TestValidateMove(t *testing.T) {
	settings := &Settings{Objectives: 3, Weights: []float64{1, 1, 1}, Pool: 10}
	cases := []struct {
		name string
		s    *Settings
		move []int
		want error
	}{
		{"ok", settings, []int{3, 3, 4}, nil},
		{"all in one", settings, []int{0, 0, 10}, nil},
		{"short", settings, []int{5, 5}, ErrInvalidMove},
		{"long", settings, []int{5, 5, 0, 0}, ErrInvalidMove},
		{"under", settings, []int{3, 3, 3}, ErrInvalidMove},
		{"over", settings, []int{3, 3, 5}, ErrInvalidMove},
		{"negative", settings, []int{-1, 6, 5}, ErrInvalidMove},
		{"wraps around", settings, []int{math.MaxInt, math.MaxInt, 12}, ErrInvalidMove},
		{"entry above pool", settings, []int{11, -1, 0}, ErrInvalidMove},
		{"no settings", nil, []int{10}, ErrMissingSettings},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMove(tc.s, tc.move)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateMove_ZeroPool(t *testing.T) {
	if err := ValidateMove(&Settings{Objectives: 2, Weights: []float64{1, 1}, Pool: 0}, []int{0, 0}); err != nil {
		t.Fatalf("zero pool with zero allocation should be valid: %v", err)
	}
}

func TestValidateSettings(t *testing.T) {
	cases := []struct {
		name string
		s    *Settings
		ok   bool
	}{
		{"ok", &Settings{Objectives: 2, Weights: []float64{1, 2}, Pool: 5}, true},
		{"fractional weight", &Settings{Objectives: 1, Weights: []float64{0.5}, Pool: 1}, true},
		{"nil", nil, false},
		{"no objectives", &Settings{Objectives: 0, Weights: nil, Pool: 5}, false},
		{"weight count", &Settings{Objectives: 2, Weights: []float64{1}, Pool: 5}, false},
		{"negative weight", &Settings{Objectives: 1, Weights: []float64{-1}, Pool: 5}, false},
		{"nan weight", &Settings{Objectives: 1, Weights: []float64{math.NaN()}, Pool: 5}, false},
		{"negative pool", &Settings{Objectives: 1, Weights: []float64{1}, Pool: -1}, false},
		{"too many", &Settings{Objectives: 4, Weights: []float64{1, 1, 1, 1}, Pool: 1}, false},
		{"sum overflows", &Settings{Objectives: 2, Weights: []float64{1e308, 1e308}, Pool: 1}, false},
		{"sum above cap", &Settings{Objectives: 2, Weights: []float64{MaxTotalWeight, 1}, Pool: 1}, false},
		{"sum at cap", &Settings{Objectives: 2, Weights: []float64{MaxTotalWeight / 2, MaxTotalWeight / 2}, Pool: 1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSettings(tc.s, 3)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("expected ErrInvalidSettings, got %v", err)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	err := ValidateMove(&Settings{Objectives: 1, Weights: []float64{1}, Pool: 2}, []int{1})
	if CodeOf(err) != CodeInvalidMove {
		t.Fatalf("expected INVALID_MOVE, got %s", CodeOf(err))
	}
	if CodeOf(ErrUnauthorized) != CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %s", CodeOf(ErrUnauthorized))
	}
}
