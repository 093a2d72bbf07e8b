package domain

// State is where a record sits in the pipeline. Persistence still encodes it
// by location; this type makes the transitions checkable.
type State string

const (
	StateRaw              State = "raw"
	StateValidatedPending State = "validated_pending"
	StateProcessed        State = "processed"
	StateDropped          State = "dropped"
	// StateUnknown is reported when locations do not match any state.
	StateUnknown State = "unknown"
)

var transitions = map[State][]State{
	StateRaw:              {StateRaw, StateValidatedPending, StateDropped},
	StateValidatedPending: {StateValidatedPending, StateProcessed},
	StateProcessed:        {},
	StateDropped:          {},
}

// CanTransition reports whether a record may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) Terminal() bool {
	allowed, known := transitions[s]
	return known && len(allowed) == 0
}

// Locations records which stores currently hold a key.
type Locations struct {
	Raw       bool `json:"raw"`
	Processed bool `json:"processed"`
	Archive   bool `json:"archive"`
}

// InferState maps physical locations back to a state. Raw and Dropped are
// indistinguishable because a drop writes no marker, so a raw-only object is
// reported as Raw.
func InferState(loc Locations) State {
	switch {
	case loc.Raw && !loc.Processed && !loc.Archive:
		return StateRaw
	case loc.Raw:
		// Transformer wrote at least one copy and has not deleted raw yet.
		return StateValidatedPending
	case loc.Processed && loc.Archive:
		return StateProcessed
	default:
		return StateUnknown
	}
}
