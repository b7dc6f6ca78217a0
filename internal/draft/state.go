package draft

// State is the position of a session in the save pipeline.
type State int

const (
	// Composing is the resting state: pages may be added, removed and edited.
	Composing State = iota

	// Reconciling pulls live field values into every page.
	Reconciling

	// Validating checks every page for required data.
	Validating

	// Persisting writes the payload to the store.
	Persisting

	// Committed follows a successful save. Any further edit returns the
	// session to Composing on the same identity.
	Committed
)

var stateNames = [...]string{
	Composing:   "composing",
	Reconciling: "reconciling",
	Validating:  "validating",
	Persisting:  "persisting",
	Committed:   "committed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
