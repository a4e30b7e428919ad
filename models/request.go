package models

// SignalRequest is the payload for POST /api/v1/signals.
type SignalRequest struct {
	// Kind is the signal kind: "scroll" or "mutation". Required.
	Kind string `json:"kind" binding:"required,oneof=scroll mutation"`

	// Magnitude is the scroll delta in px or the number of added elements.
	Magnitude float64 `json:"magnitude"`
}

// TriggerRequest is the payload for POST /api/v1/trigger.
type TriggerRequest struct {
	// Kind selects the action profile to run. Default: "mutation".
	Kind string `json:"kind,omitempty" binding:"omitempty,oneof=scroll mutation"`
}
