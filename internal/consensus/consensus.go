// Package consensus combines the three stage opinions into one action.
package consensus

import (
	"agent-team-trader/internal/types"
)

const (
	WeightMarket    = 0.35
	WeightSentiment = 0.25
	WeightRisk      = 0.40

	ExecuteThreshold = 0.65
	AlertThreshold   = 0.45

	// epsilon absorbs float error in sums that land on a threshold.
	epsilon = 1e-9
)

var weights = map[string]float64{
	types.SourceMarket:    WeightMarket,
	types.SourceSentiment: WeightSentiment,
	types.SourceRisk:      WeightRisk,
}

// Weight returns the voting weight for a stage source, zero when it does not vote.
func Weight(source string) float64 {
	return weights[source]
}

// Evaluate runs the weighted vote. A risk Reject vetoes everything else.
// Decisions from sources without a weight are ignored.
func Evaluate(decisions []types.AgentDecision) types.ConsensusResult {
	for _, d := range decisions {
		if d.Source() == types.SourceRisk && d.Signal() == types.SignalReject {
			return types.ConsensusResult{
				Action:    types.ActionHold,
				Direction: types.DirectionNone,
				Vetoed:    true,
			}
		}
	}

	var (
		score float64
		votes types.Votes
	)
	for _, d := range decisions {
		w, ok := weights[d.Source()]
		if !ok {
			continue
		}
		switch bucket(d.Signal()) {
		case types.DirectionBuy:
			score += d.Confidence() * w
			votes.Buy += w
		case types.DirectionSell:
			score += d.Confidence() * w
			votes.Sell += w
		default:
			votes.Hold += w
		}
	}

	return types.ConsensusResult{
		Action:        actionFor(score),
		WeightedScore: score,
		Direction:     direction(votes),
		Votes:         votes,
	}
}

// bucket maps a signal to the direction it votes for. Approve counts as buy.
func bucket(s types.SignalKind) types.Direction {
	switch s {
	case types.SignalBuy, types.SignalBullish, types.SignalApprove:
		return types.DirectionBuy
	case types.SignalSell, types.SignalBearish:
		return types.DirectionSell
	default:
		return types.DirectionNone
	}
}

func actionFor(score float64) types.Action {
	switch {
	case score >= ExecuteThreshold-epsilon:
		return types.ActionExecute
	case score >= AlertThreshold-epsilon:
		return types.ActionAlert
	default:
		return types.ActionHold
	}
}

func direction(v types.Votes) types.Direction {
	switch {
	case v.Buy > v.Sell:
		return types.DirectionBuy
	case v.Sell > v.Buy:
		return types.DirectionSell
	default:
		return types.DirectionNone
	}
}
