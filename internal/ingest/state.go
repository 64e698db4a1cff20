package ingest

// State is a step of the per-image state machine.
type State int

// States, in the order a successful ingestion visits them.
const (
	StateStart State = iota
	StateAcquireCredential
	StateUpload
	StateInsert
	StateInserted
	StateInvalidateCredential
	StateFailed
)

var stateNames = [...]string{
	StateStart:                "start",
	StateAcquireCredential:    "acquire_credential",
	StateUpload:               "upload",
	StateInsert:               "insert",
	StateInserted:             "inserted",
	StateInvalidateCredential: "invalidate_credential",
	StateFailed:               "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// Terminal reports whether s ends the state machine.
func (s State) Terminal() bool {
	return s == StateInserted || s == StateFailed
}
