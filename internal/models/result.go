package models

import (
	"encoding/json"
	"time"
)

// SimilarityRow is a single (query, candidate, similarity) result.
type SimilarityRow struct {
	QueryID     int64   `json:"id_left"`
	CandidateID int64   `json:"id_right"`
	Similarity  float32 `json:"similarity"`
}

// EvaluationRow is one scored item inside an evaluation group (e.g. a user).
type EvaluationRow struct {
	Group     string  `json:"group"`
	Predicted float64 `json:"predicted"`
	Target    float64 `json:"target"`
}

// EvaluationRun is a persisted evaluation. Report holds the JSON-encoded result.
type EvaluationRun struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	K         int             `json:"k"`
	Metrics   []string        `json:"metrics"`
	Groups    int             `json:"groups"`
	Report    json.RawMessage `json:"report"`
	CreatedAt time.Time       `json:"created_at"`
}
