package models

import (
	"time"

	"github.com/garyohosu/translate-nudge/action"
	"github.com/garyohosu/translate-nudge/trigger"
)

// Response is the envelope for every API response except health.
type Response struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// SignalResponse is the response for POST /api/v1/signals.
type SignalResponse struct {
	// Accepted reports whether the signal qualified and armed a trigger.
	Accepted bool   `json:"accepted"`
	State    string `json:"state"`
}

// TriggerResponse is the response for POST /api/v1/trigger.
type TriggerResponse struct {
	// Fired is false when the cooldown or an in-flight fire suppressed it.
	Fired bool   `json:"fired"`
	Kind  string `json:"kind"`
}

// StatsResponse is the response for GET /api/v1/stats.
type StatsResponse struct {
	Scheduler trigger.Stats      `json:"scheduler"`
	Runner    action.RunnerStats `json:"runner"`
}

// PendingElement is one candidate that still looks untranslated.
type PendingElement struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Processed bool   `json:"processed"`
}

// PendingResponse is the response for GET /api/v1/pending.
type PendingResponse struct {
	Count    int              `json:"count"`
	Elements []PendingElement `json:"elements"`

	// Markdown renders the pending elements for humans and agents.
	Markdown string `json:"markdown"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "stopped"
	Uptime    string    `json:"uptime"`
	State     string    `json:"state"`
	Target    string    `json:"target,omitempty"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
}
