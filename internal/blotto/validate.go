package blotto

import (
	"fmt"
	"math"
)

// DefaultMaxObjectives bounds settings when the caller passes no explicit limit.
const DefaultMaxObjectives = 100

// MaxTotalWeight caps what one pair can distribute so cumulative totals stay finite.
const MaxTotalWeight = 1e12

// ValidateMove checks a candidate allocation against the active settings.
// The move must have one entry per objective and sum exactly to the pool.
func ValidateMove(settings *Settings, move []int) error {
	if settings == nil {
		return ErrMissingSettings
	}
	if len(move) != settings.Objectives {
		return fmt.Errorf("%w: expected %d values, got %d", ErrInvalidMove, settings.Objectives, len(move))
	}
	sum := 0
	for i, v := range move {
		if v < 0 {
			return fmt.Errorf("%w: objective %d has negative allocation", ErrInvalidMove, i+1)
		}
		if v > settings.Pool-sum {
			return fmt.Errorf("%w: allocation exceeds pool %d at objective %d", ErrInvalidMove, settings.Pool, i+1)
		}
		sum += v
	}
	if sum != settings.Pool {
		return fmt.Errorf("%w: allocation sums to %d, pool is %d", ErrInvalidMove, sum, settings.Pool)
	}
	return nil
}

// ValidateSettings rejects settings that cannot produce a well-defined round.
func ValidateSettings(settings *Settings, maxObjectives int) error {
	if settings == nil {
		return ErrInvalidSettings
	}
	if maxObjectives <= 0 {
		maxObjectives = DefaultMaxObjectives
	}
	if settings.Objectives < 1 {
		return fmt.Errorf("%w: at least one objective is required", ErrInvalidSettings)
	}
	if settings.Objectives > maxObjectives {
		return fmt.Errorf("%w: at most %d objectives", ErrInvalidSettings, maxObjectives)
	}
	if len(settings.Weights) != settings.Objectives {
		return fmt.Errorf("%w: expected %d weights, got %d", ErrInvalidSettings, settings.Objectives, len(settings.Weights))
	}
	for i, w := range settings.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: weight %d must be a non-negative number", ErrInvalidSettings, i+1)
		}
	}
	if total := settings.TotalWeight(); math.IsInf(total, 0) || total > MaxTotalWeight {
		return fmt.Errorf("%w: weights may sum to at most %g", ErrInvalidSettings, float64(MaxTotalWeight))
	}
	if settings.Pool < 0 {
		return fmt.Errorf("%w: pool must be non-negative", ErrInvalidSettings)
	}
	return nil
}
