package domain

import "time"

// Result is a single verifier's answer.
type Result string

const (
	ResultAccept Result = "accept"
	ResultReject Result = "reject"
	ResultError  Result = "error"
)

// Reasons attached to ResultError outcomes.
const (
	ReasonTimeout          = "timeout"
	ReasonConfigDrift      = "config_drift"
	ReasonInvocationFailed = "invocation_failed"
)

// Outcome is the answer of one bound verifier for one event.
type Outcome struct {
	Verifier string
	Result   Result
	// Reason is set for error outcomes.
	Reason   string
	Detail   string
	Duration time.Duration
}

// Decision is the combined verdict of all outcomes.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Combine applies the unanimous accept policy: one reject or error rejects
// the event. An empty outcome set accepts.
func Combine(outcomes []Outcome) Decision {
	for _, o := range outcomes {
		if o.Result != ResultAccept {
			return DecisionReject
		}
	}
	return DecisionAccept
}

// State is the position of an event in its lifecycle.
type State string

const (
	StateReceived   State = "received"
	StateVerifying  State = "verifying"
	StateDecided    State = "decided"
	StateDispatched State = "dispatched"
	StateSuppressed State = "suppressed"
)

// Reasons an event ends suppressed.
const (
	SuppressUnregisteredCA = "unregistered_ca"
	SuppressRejected       = "rejected"
	SuppressDuplicate      = "duplicate"
	SuppressDispatchFailed = "dispatch_failed"
)

// Resolution is the terminal record of an event.
type Resolution struct {
	CorrelationID string
	CAID          string
	State         State
	// Reason is set when State is StateSuppressed.
	Reason string
	// Decision is empty when the event never reached verification.
	Decision Decision
	Outcomes []Outcome
	// ActivationID is the enqueued activation request when State is StateDispatched.
	ActivationID string
}

// Terminal reports whether the resolution ended the event.
func (r *Resolution) Terminal() bool {
	return r.State == StateDispatched || r.State == StateSuppressed
}
