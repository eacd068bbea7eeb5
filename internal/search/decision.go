package search

import (
	"tagmatch/internal"
	"tagmatch/internal/config"
)

// Thresholds hold the confidence bands of the decision policy. The rerank
// band is deliberately stricter than the plain high band: a rerank score is
// a better-calibrated signal, so unattended approval earns a higher bar.
type Thresholds struct {
	Low        float64
	High       float64
	RerankHigh float64
}

func ThresholdsFromConfig(cfg config.Config) Thresholds {
	return Thresholds{
		Low:        cfg.MatchLowThreshold,
		High:       cfg.MatchHighThreshold,
		RerankHigh: cfg.RerankHighThreshold,
	}
}

// Decide maps the top candidate, the requested quantity and the thresholds
// onto one of the four terminal actions. Pure function, evaluated fresh per
// query. Boundary semantics are strict: confidence exactly at a threshold
// clears it.
func Decide(top *internal.QueryCandidate, requestedQty int, th Thresholds) internal.MatchDecision {
	if top == nil {
		return internal.MatchDecision{
			Action:            internal.ActionNoMatch,
			RequestedQuantity: requestedQty,
			Reason:            "no candidates found",
		}
	}

	// An order line always wants at least one unit; a missing or zero
	// quantity must never let an out-of-stock item auto-approve.
	if requestedQty < 1 {
		requestedQty = 1
	}

	confidence := top.FinalConfidence()
	high := th.High
	if top.RerankScore != nil {
		high = th.RerankHigh
	}

	decision := internal.MatchDecision{
		Confidence:        confidence,
		RequestedQuantity: requestedQty,
		AvailableStock:    top.Item.Stock,
	}

	switch {
	case confidence < th.Low:
		decision.Action = internal.ActionNoMatch
		decision.Reason = "low confidence, manual search required"
	case confidence < high:
		decision.Action = internal.ActionManualReview
		decision.Reason = "medium confidence, needs human confirmation"
	case top.Item.Stock >= requestedQty:
		decision.Action = internal.ActionAutoApprove
		decision.Reason = "high confidence and sufficient stock"
	default:
		decision.Action = internal.ActionFindAlternative
		decision.Reason = "high confidence but insufficient stock"
	}
	return decision
}
