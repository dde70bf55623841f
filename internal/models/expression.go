package models

// ExpressionEvent is pushed to websocket clients on every face change.
type ExpressionEvent struct {
	Type      string `json:"type"` // always "expression"
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}
