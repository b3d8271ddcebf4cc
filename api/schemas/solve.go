package schemas

import "time"

// -- Remote Vision Schemas --

// SolveRequest is published on the vision subject. Images are base64 PNG, with or
// without a data URL prefix.
type SolveRequest struct {
	RequestID string `json:"request_id"`
	Original  string `json:"original"`
	Overlay   string `json:"overlay"`
	// Piece is optional. When present the reply carries the piece centroid too.
	Piece string `json:"piece,omitempty"`
}

// SolveResponse is the reply to a SolveRequest. XOffset is the slot centroid x,
// the horizontal distance the handle is planned to travel.
type SolveResponse struct {
	RequestID  string  `json:"request_id"`
	XOffset    int     `json:"x_offset"`
	SlotX      int     `json:"slot_x"`
	SlotY      int     `json:"slot_y"`
	PieceX     int     `json:"piece_x,omitempty"`
	PieceY     int     `json:"piece_y,omitempty"`
	DiffCount  int     `json:"diff_count"`
	Confidence float64 `json:"confidence"`
	Success    bool    `json:"success"`
	Error      string  `json:"error,omitempty"`
}

// -- Attempt Ledger Schemas --

// AttemptOutcome classifies how an attempt ended.
type AttemptOutcome string

const (
	// OutcomeReleased means the drag completed. Whether the widget accepted it is
	// judged outside of the solver.
	OutcomeReleased AttemptOutcome = "released"
	OutcomeFailed   AttemptOutcome = "failed"
	OutcomeCanceled AttemptOutcome = "canceled"
)

// AttemptRecord summarizes one solve attempt.
type AttemptRecord struct {
	ID         string         `json:"id" yaml:"id"`
	RunID      string         `json:"run_id" yaml:"run_id"`
	Attempt    int            `json:"attempt" yaml:"attempt"`
	URL        string         `json:"url" yaml:"url"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	Duration   time.Duration  `json:"duration" yaml:"duration"`
	Outcome    AttemptOutcome `json:"outcome" yaml:"outcome"`
	SlotX      int            `json:"slot_x" yaml:"slot_x"`
	SlotY      int            `json:"slot_y" yaml:"slot_y"`
	PieceX     int            `json:"piece_x" yaml:"piece_x"`
	PieceY     int            `json:"piece_y" yaml:"piece_y"`
	PlannedX   float64        `json:"planned_x" yaml:"planned_x"`
	FinalX     float64        `json:"final_x" yaml:"final_x"`
	FinalY     float64        `json:"final_y" yaml:"final_y"`
	DiffCount  int            `json:"diff_count" yaml:"diff_count"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	FinalState string         `json:"final_state" yaml:"final_state"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
}
