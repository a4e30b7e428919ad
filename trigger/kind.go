package trigger

import (
	"fmt"
	"strings"
)

// Kind identifies which signal armed a trigger, and so which action
// profile runs when it fires.
type Kind uint8

const (
	KindScroll Kind = iota + 1
	KindMutation
)

// Kinds lists every signal kind.
var Kinds = []Kind{KindScroll, KindMutation}

func (k Kind) String() string {
	switch k {
	case KindScroll:
		return "scroll"
	case KindMutation:
		return "mutation"
	default:
		return "unknown"
	}
}

// ParseKind maps "scroll" / "mutation" (case-insensitive) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scroll":
		return KindScroll, nil
	case "mutation":
		return KindMutation, nil
	default:
		return 0, fmt.Errorf("trigger: unknown signal kind %q", s)
	}
}

// State is the scheduler's lifecycle position.
type State uint8

const (
	StateIdle State = iota
	StateArmed
	StateFiring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	default:
		return "unknown"
	}
}

// MutationBatch summarises one subtree-mutation notification.
type MutationBatch struct {
	// AddedNodes counts every added node, text nodes included.
	AddedNodes int
	// AddedElements counts added element-type nodes only.
	AddedElements int
}
