package model

import "strings"

// Credential is one line of the accounts file: the opaque bot-issued payload
// for a single account. Index is the account's position in the file and its
// identity within a run.
type Credential struct {
	Index int
	Raw   string
}

// Identity is the user profile embedded in a credential payload.
type Identity struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (id Identity) FullName() string {
	return strings.TrimSpace(id.FirstName + " " + id.LastName)
}

// Fingerprint is the simulated device presented in request headers. One
// fingerprint per account, stable for the account's lifetime.
type Fingerprint struct {
	UserAgent string `json:"userAgent"`
	Platform  string `json:"platform"`
	DeviceID  string `json:"deviceId"`
}

// RunOutcome is the per-account result of one cycle, collected by the
// scheduler. Kept in memory only.
type RunOutcome struct {
	Index      int    `json:"index"`
	Session    string `json:"session"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	ProxyIP    string `json:"proxyIP,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

type CycleState struct {
	Running   bool         `json:"running"`
	Cycle     int          `json:"cycle"`
	StartedMs int64        `json:"startedMs,omitempty"`
	Outcomes  []RunOutcome `json:"outcomes,omitempty"`
}
