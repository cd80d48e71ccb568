package architect

import "github.com/streakhq/curator/internal/contracts"

var badgeByType = map[contracts.SignalType]contracts.Badge{
	contracts.SignalPriceMovement: contracts.BadgeHot,
	contracts.SignalSocialTrend:   contracts.BadgeViral,
}

// classify maps a signal onto its market category and badge; unknown
// categories fall back to CRYPTO and unknown types carry no badge.
func classify(sig contracts.Signal) (contracts.Category, contracts.Badge) {
	category := sig.Category
	if !category.Valid() {
		category = contracts.CategoryCrypto
	}

	badge, ok := badgeByType[sig.Type()]
	if !ok {
		badge = contracts.BadgeNone
	}
	return category, badge
}
