package models

// EngagementResult is the tally outcome for one ledger entry. Err is set when
// the entry could not be scored; such entries are not eligible to win.
type EngagementResult struct {
	CID     string
	Creator string
	Score   int
	Err     error
}

func (r EngagementResult) Eligible() bool {
	return r.Err == nil
}

// WinnerDecision is the selected entry and the ledger write that declared it.
type WinnerDecision struct {
	CID    string
	Score  int
	Policy string
	TxHash string
}
