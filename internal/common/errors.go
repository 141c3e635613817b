// Package common defines the sentinel errors shared by every stage of the
// contest pipeline. Stages wrap the underlying cause with one of these values,
// so callers should match them with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Pipeline stage errors. Each one aborts the entry that produced it.
	ErrGeneration   = errors.New("generation error")
	ErrImageLookup  = errors.New("image lookup error")
	ErrDistribution = errors.New("distribution error")
	ErrStorage      = errors.New("storage error")
	ErrLedgerSubmit = errors.New("ledger submit error")

	// Tally errors. An entry failing with this is excluded from the tally.
	ErrReferenceParse = errors.New("reference parse error")

	// Validation and selection errors.
	ErrInvalidEntry      = errors.New("invalid entry")
	ErrNoEligibleEntries = errors.New("no eligible entries")
	ErrIntegrityMismatch = errors.New("content does not match its identifier")
	ErrTokenExpired      = errors.New("token expired")
)
