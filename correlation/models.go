package correlation

import "time"

// PackageRecord is the stored mapping between a provider package and the
// internal designation it was created for. Records are never deleted;
// cancellation flips the flag and preserves history.
type PackageRecord struct {
	PackageID      string
	DesignationID  *int64
	SignerEmail    string
	CorrelationTag string
	CreatedAt      time.Time
	Canceled       bool
}

// InsertParams captures a single correlation insert. DesignationID is kept
// as the caller-supplied string; values that do not parse as integers are
// stored as NULL rather than rejected.
type InsertParams struct {
	PackageID      string
	DesignationID  string
	SignerEmail    string
	CorrelationTag string
}
