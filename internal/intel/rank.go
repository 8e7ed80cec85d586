package intel

import (
	"sort"

	"ammowatch/internal/caliber"
)

// Rank totally orders eligible deals, best first: PRICE_DROP before any
// other reason, then earlier DetectedAt, then ProductID ascending. The
// order is a pure function of the deal set; no viewer state is consulted.
func Rank(deals []MarketDeal) []MarketDeal {
	ranked := make([]MarketDeal, len(deals))
	copy(ranked, deals)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if pa, pb := a.Reason.rankPriority(), b.Reason.rankPriority(); pa != pb {
			return pa < pb
		}
		if !a.DetectedAt.Equal(b.DetectedAt) {
			return a.DetectedAt.Before(b.DetectedAt)
		}
		return a.ProductID < b.ProductID
	})
	return ranked
}

// Hero returns the top-ranked deal, or nil for an empty set.
func Hero(ranked []MarketDeal) *MarketDeal {
	if len(ranked) == 0 {
		return nil
	}
	hero := ranked[0]
	return &hero
}

// Split partitions an already-ranked list into deals matching the
// viewer's calibers and the rest, preserving relative order within each
// partition and truncating each to its own cap. Splitting is filter-only;
// it never re-ranks and never touches the hero computed upstream.
func Split(ranked []MarketDeal, viewer map[caliber.Caliber]bool, matchedCap, otherCap int) (matched, other []MarketDeal) {
	matched = make([]MarketDeal, 0, matchedCap)
	other = make([]MarketDeal, 0, otherCap)
	for _, deal := range ranked {
		if viewer[deal.Caliber] {
			if len(matched) < matchedCap {
				matched = append(matched, deal)
			}
			continue
		}
		if len(other) < otherCap {
			other = append(other, deal)
		}
	}
	return matched, other
}
