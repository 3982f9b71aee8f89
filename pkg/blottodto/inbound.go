package blottodto

import (
	"encoding/json"
	"fmt"
	"math"
)

// Inbound frame types.
const (
	TypeJoin            = "join"
	TypeProposeSettings = "propose-settings"
	TypeUpdateSettings  = "update-settings"
	TypeSubmitMove      = "submit-move"
	TypeAdvanceRound    = "advance-round"
	TypeEndSession      = "end-session"
	TypeLeave           = "leave"
)

// maxWireInt bounds integers accepted from clients.
const maxWireInt = math.MaxInt32

type JoinRequest struct {
	Name string `json:"name"`
}

// SettingsRequest keeps numbers raw so that strings like "10" and
// non-integers can be told apart from valid values.
type SettingsRequest struct {
	Objectives json.Number   `json:"objectives"`
	Weights    []json.Number `json:"weights"`
	Pool       json.Number   `json:"pool"`
}

type MoveRequest struct {
	Allocation []json.Number `json:"allocation"`
}

// Settings is the decoded settings payload.
type Settings struct {
	Objectives int       `json:"objectives"`
	Weights    []float64 `json:"weights"`
	Pool       int       `json:"pool"`
}

func ParseJoin(raw json.RawMessage) (JoinRequest, error) {
	var req JoinRequest
	if len(raw) == 0 || string(raw) == "null" {
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return JoinRequest{}, DecodeError{Code: CodeMalformedFrame, Message: "join data must be {name}"}
	}
	return req, nil
}

// ParseSettings decodes {objectives, weights[], pool}. Objectives and pool must be
// non-negative integers; weights must be finite numbers. Range checks beyond that
// belong to the engine.
func ParseSettings(raw json.RawMessage) (Settings, error) {
	var req SettingsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return Settings{}, DecodeError{Code: CodeMalformedSettings, Message: "settings must be {objectives, weights[], pool}"}
	}
	objectives, err := wholeNumber(req.Objectives, "objectives")
	if err != nil {
		return Settings{}, DecodeError{Code: CodeMalformedSettings, Message: err.Error()}
	}
	pool, err := wholeNumber(req.Pool, "pool")
	if err != nil {
		return Settings{}, DecodeError{Code: CodeMalformedSettings, Message: err.Error()}
	}
	weights := make([]float64, len(req.Weights))
	for i, w := range req.Weights {
		f, err := w.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Settings{}, DecodeError{Code: CodeMalformedSettings, Message: fmt.Sprintf("weight %d is not a number", i+1)}
		}
		weights[i] = f
	}
	return Settings{Objectives: objectives, Weights: weights, Pool: pool}, nil
}

// ParseAllocation decodes {allocation[]} into whole, non-negative unit counts.
func ParseAllocation(raw json.RawMessage) ([]int, error) {
	var req MoveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, DecodeError{Code: CodeMalformedMove, Message: "move must be {allocation[]}"}
	}
	if req.Allocation == nil {
		return nil, DecodeError{Code: CodeMalformedMove, Message: "allocation is missing"}
	}
	out := make([]int, len(req.Allocation))
	for i, n := range req.Allocation {
		v, err := wholeNumber(n, fmt.Sprintf("allocation %d", i+1))
		if err != nil {
			return nil, DecodeError{Code: CodeMalformedMove, Message: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}

func wholeNumber(n json.Number, field string) (int, error) {
	if n == "" {
		return 0, fmt.Errorf("%s is missing", field)
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s is not a number", field)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s must be a whole number", field)
	}
	if f < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	if f > maxWireInt {
		return 0, fmt.Errorf("%s is too large", field)
	}
	return int(f), nil
}
