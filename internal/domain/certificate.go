package domain

import (
	"strings"
	"time"
)

// CertificateRecord is what the authority client reports for a host.
// It is built fresh on each inspection and never cached.
type CertificateRecord struct {
	Name    string    `json:"name"`
	Domains string    `json:"domains"` // space separated, as reported
	Expiry  time.Time `json:"expiry"`
	Path    string    `json:"path,omitempty"`
}

// DomainList splits the reported domain list.
func (c *CertificateRecord) DomainList() []string {
	if c == nil {
		return nil
	}
	return strings.Fields(c.Domains)
}

// Remaining returns how long the certificate stays valid after now.
func (c *CertificateRecord) Remaining(now time.Time) time.Duration {
	return c.Expiry.Sub(now)
}

// MissReason explains why an inspection produced no record.
// Callers of the lifecycle treat every reason the same way.
type MissReason string

const (
	MissNone          MissReason = ""
	MissExecError     MissReason = "exec_error"     // client could not be launched
	MissCommandFailed MissReason = "command_failed" // client exited non-zero
	MissNoFields      MissReason = "no_fields"      // report had none of the labeled fields
	MissBadExpiry     MissReason = "bad_expiry"     // expiry missing or not a timestamp
)

// Inspection is the outcome of asking the authority client about a host.
// Record is nil whenever Miss is set.
type Inspection struct {
	Record *CertificateRecord
	Miss   MissReason
}

// Found reports whether a usable record was obtained.
func (i Inspection) Found() bool {
	return i.Record != nil
}
