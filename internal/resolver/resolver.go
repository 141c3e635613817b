// Package resolver picks the contest winner from a tally snapshot and
// records it on the ledger.
package resolver

import (
	"context"
	"fmt"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/ledger"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

type Policy string

const (
	// PolicyMax selects the entry with the most engagement.
	PolicyMax Policy = "max"
	// PolicyMinLegacy selects the entry with the least engagement, matching
	// contests that were resolved by sorting scores ascending and taking the
	// first.
	PolicyMinLegacy Policy = "min_legacy"
)

// ParsePolicy maps a config value to a Policy. Empty means PolicyMax.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyMax:
		return PolicyMax, nil
	case PolicyMinLegacy:
		return PolicyMinLegacy, nil
	default:
		return "", fmt.Errorf("unknown winner policy %q", s)
	}
}

// Select picks the winner among eligible results. Ties go to the entry that
// comes first in the snapshot.
func Select(snapshot []models.EngagementResult, policy Policy) (models.WinnerDecision, error) {
	better := func(a, b int) bool { return a > b }
	switch policy {
	case PolicyMax, "":
		policy = PolicyMax
	case PolicyMinLegacy:
		better = func(a, b int) bool { return a < b }
	default:
		return models.WinnerDecision{}, fmt.Errorf("unknown winner policy %q", policy)
	}

	best := -1
	for i, r := range snapshot {
		if !r.Eligible() {
			continue
		}
		if best < 0 || better(r.Score, snapshot[best].Score) {
			best = i
		}
	}
	if best < 0 {
		return models.WinnerDecision{}, common.ErrNoEligibleEntries
	}
	return models.WinnerDecision{CID: snapshot[best].CID, Score: snapshot[best].Score, Policy: string(policy)}, nil
}

// Declarer records the winning CID.
type Declarer interface {
	DeclareWinner(ctx context.Context, cid string) (ledger.DispatchResult, error)
}

type Resolver struct {
	declarer Declarer
	policy   Policy
	logger   logging.Logger
}

func New(declarer Declarer, policy Policy, logger logging.Logger) *Resolver {
	return &Resolver{declarer: declarer, policy: policy, logger: logger.With("module", "resolver")}
}

// Resolve selects the winner and dispatches the declaration. Nothing is
// written when no entry is eligible.
func (r *Resolver) Resolve(ctx context.Context, snapshot []models.EngagementResult) (models.WinnerDecision, error) {
	d, err := Select(snapshot, r.policy)
	if err != nil {
		return models.WinnerDecision{}, err
	}

	res, err := r.declarer.DeclareWinner(ctx, d.CID)
	if err != nil {
		return d, err
	}
	d.TxHash = res.TxHash
	r.logger.Info(ctx, "winner declared", "cid", d.CID, "score", d.Score, "policy", d.Policy, "tx", d.TxHash)
	return d, nil
}
