package domain

// Phase is the resolution state of a form session.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseDebouncing     Phase = "debouncing"
	PhaseResolving      Phase = "resolving"
	PhaseResolved       Phase = "resolved"
	PhaseFailed         Phase = "failed"
	PhaseManualOverride Phase = "manual_override"
)

// Pending reports whether an automated resolution may still change the coordinate.
func (p Phase) Pending() bool {
	return p == PhaseDebouncing || p == PhaseResolving
}

// Field names an input channel that drives automated resolution.
type Field string

const (
	FieldAddress Field = "address"
	FieldMapLink Field = "map_link"
)
