// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import "github.com/pdiddy/paper-digest/pkg/types"

// Promotion is the set of papers selected for deep analysis.
type Promotion struct {
	// IDs are the promoted papers in promotion order.
	IDs []string
	// Fallback is set when IDs came from the top-k policy instead of the threshold.
	Fallback bool
}

// Promote selects papers from ordered (as returned by Order) whose score is
// at least the threshold, capped at MaxPromoted. Clearing the threshold does
// not guarantee inclusion. Unscored papers are never promoted.
//
// When nothing clears the threshold, EmptyTopK promotes the best FallbackTopK
// scored papers (still capped at MaxPromoted) and marks the promotion as a
// fallback; EmptySkip promotes nothing.
func Promote(ordered []types.Paper, cfg types.RankingConfig) Promotion {
	var promo Promotion
	if cfg.MaxPromoted <= 0 {
		return promo
	}

	for _, p := range ordered {
		if len(promo.IDs) == cfg.MaxPromoted {
			break
		}
		if p.Scored() && p.Score() >= cfg.PromotionThreshold {
			promo.IDs = append(promo.IDs, p.ID)
		}
	}
	if len(promo.IDs) > 0 || cfg.EmptyPolicy != types.EmptyTopK {
		return promo
	}

	k := min(cfg.FallbackTopK, cfg.MaxPromoted)
	for _, p := range ordered {
		if len(promo.IDs) >= k || !p.Scored() {
			break
		}
		promo.IDs = append(promo.IDs, p.ID)
	}
	promo.Fallback = len(promo.IDs) > 0
	return promo
}
