package domain

import (
	"time"
)

// RenewalThreshold is the safety margin before expiry under which a
// certificate is renewed. It covers one missed daily cycle plus CA rate limits.
const RenewalThreshold = 15 * 24 * time.Hour

// State is the lifecycle state of a route for one cycle. Nothing is persisted.
type State string

const (
	StateNotApplicable State = "not_applicable" // TLS disabled
	StateAbsent        State = "absent"         // no usable certificate
	StateValid         State = "valid"          // expiry >= now + threshold
	StateExpiringSoon  State = "expiring_soon"  // expiry < now + threshold

	StateIssued       State = "issued"
	StateRenewed      State = "renewed"
	StateActionFailed State = "action_failed"
)

// Action is what the lifecycle does about an observed state.
type Action string

const (
	ActionNone   Action = "none"
	ActionObtain Action = "obtain"
	ActionRenew  Action = "renew"
)

// Decide maps a route and its inspection result to a state and the action it
// requires. A nil record always means Absent, whatever the reason it is missing.
// The threshold comparison is strict: expiry exactly at now+threshold is Valid.
func Decide(route Route, record *CertificateRecord, now time.Time) (State, Action) {
	if !route.TLSEnabled {
		return StateNotApplicable, ActionNone
	}
	if record == nil {
		return StateAbsent, ActionObtain
	}
	if record.Expiry.Before(now.UTC().Add(RenewalThreshold)) {
		return StateExpiringSoon, ActionRenew
	}
	return StateValid, ActionNone
}

// Outcome records what happened to one route during one cycle.
type Outcome struct {
	Host      string     `json:"host"`
	Observed  State      `json:"observed"`
	Action    Action     `json:"action"`
	Final     State      `json:"final"`
	Miss      MissReason `json:"miss,omitempty"`
	Expiry    time.Time  `json:"expiry,omitzero"`
	Reloaded  bool       `json:"reloaded"`
	Err       error      `json:"-"`
	Error     string     `json:"error,omitempty"`
	CheckedAt time.Time  `json:"checked_at"`
}

// Failed reports whether the route's action did not succeed this cycle.
func (o Outcome) Failed() bool {
	return o.Final == StateActionFailed
}
