package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketItem is one row of an upstream price listing.
type MarketItem struct {
	MarketHashName string           `json:"market_hash_name"`
	MinPrice       *decimal.Decimal `json:"min_price"`
}

// CatalogItem is the merged minimum-price view of one item.
type CatalogItem struct {
	Name                string           `json:"name"`
	TradableMinPrice    *decimal.Decimal `json:"tradable_min_price"`
	NotTradableMinPrice *decimal.Decimal `json:"not_tradable_min_price,omitempty"`
}

// MergeCatalog left-joins the tradable listing with the non-tradable one by item name.
//
// Every tradable item yields exactly one CatalogItem, in tradable order. Items that only
// appear in the non-tradable listing are dropped. If the non-tradable listing repeats a
// name, the first occurrence wins.
func MergeCatalog(tradable, notTradable []MarketItem) []CatalogItem {
	byName := make(map[string]*decimal.Decimal, len(notTradable))
	for _, item := range notTradable {
		if _, seen := byName[item.MarketHashName]; seen {
			continue
		}
		byName[item.MarketHashName] = item.MinPrice
	}

	merged := make([]CatalogItem, 0, len(tradable))
	for _, item := range tradable {
		merged = append(merged, CatalogItem{
			Name:                item.MarketHashName,
			TradableMinPrice:    item.MinPrice,
			NotTradableMinPrice: byName[item.MarketHashName],
		})
	}

	return merged
}

// CatalogSnapshot is the cached catalog plus its application-managed freshness deadline.
type CatalogSnapshot struct {
	Items     []CatalogItem `json:"items"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// IsStale reports whether the freshness deadline has passed at now. A snapshot is
// still fresh at the deadline itself.
// A stale snapshot is still served; staleness only triggers a refresh.
func (s *CatalogSnapshot) IsStale(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
