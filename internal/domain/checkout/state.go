package checkout

// State is the checkout form's position in the payment flow.
type State int

const (
	// StateIdle means no client secret is held, e.g. the basket is empty.
	StateIdle State = iota
	// StateFetching means a client secret request is in flight.
	StateFetching
	// StateReady means a client secret for the current basket is held.
	StateReady
	// StateProcessing means a payment confirmation or order write is in flight.
	StateProcessing
	// StateSucceeded means the order was written and the basket emptied.
	StateSucceeded
	// StateFailed means the last step failed; Form.Error says why.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateProcessing:
		return "processing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Form is a point-in-time copy of a shopper's checkout form state.
type Form struct {
	State State
	// Error is the text shown under the payment form, empty when none.
	Error string
	// Disabled mirrors the card element: true while the card field is empty.
	Disabled     bool
	CardComplete bool
	ClientSecret string
}

// Processing reports whether a submission is in flight.
func (f Form) Processing() bool { return f.State == StateProcessing }

// Succeeded reports whether the order was placed.
func (f Form) Succeeded() bool { return f.State == StateSucceeded }

// CardEvent is the change event emitted by the provider's card element.
type CardEvent struct {
	Empty    bool
	Complete bool
	// Error is the provider's validation message, empty when the input is valid.
	Error string
}
