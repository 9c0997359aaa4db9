package model

import "time"

// Audit outcomes, worst first.
const (
	OutcomeInvalidWork = "invalid_pow"
	OutcomeBitsDiffer  = "bits_mismatch"
	OutcomeUnverified  = "unverified"
	OutcomeMatch       = "match"
)

// AuditResult records how a node-accepted block compares with the recomputed difficulty.
type AuditResult struct {
	Network      Network
	Height       uint64
	Hash         string
	Algo         string
	Timestamp    time.Time
	Bits         uint32
	ExpectedBits uint32
	BitsMatch    bool
	// HistoryTruncated marks rows whose expected bits could not be recomputed
	// because the audited window did not reach far enough back.
	HistoryTruncated bool
	// PowChecked is false when the block hash is not the proof-of-work hash for its algorithm.
	PowChecked bool
	PowValid   bool
}

// Outcome classifies the result for reporting.
func (r AuditResult) Outcome() string {
	switch {
	case r.PowChecked && !r.PowValid:
		return OutcomeInvalidWork
	case r.HistoryTruncated:
		return OutcomeUnverified
	case !r.BitsMatch:
		return OutcomeBitsDiffer
	default:
		return OutcomeMatch
	}
}
