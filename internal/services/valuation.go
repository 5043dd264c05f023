package services

import (
	"meetbarter/internal/models"
)

// Valuation caps, applied multiplicatively against the seller-declared
// reference value. When several caps apply the most conservative one
// (the minimum) wins.
const (
	capUsed            = 0.85
	capReplicaDeclared = 0.40
	capRefurbished     = 0.60
)

// MaxListingVP computes the permissible VP price for a listing from its
// attributes. Pure and deterministic: the cap is re-derivable for audit
// from the attributes stored on the listing.
func MaxListingVP(referenceValue int64, condition models.ListingCondition, authenticity models.AuthenticityStatus, refurbished bool) int64 {
	if referenceValue <= 0 {
		return 0
	}

	factor := 1.0
	if condition == models.ConditionUsed && capUsed < factor {
		factor = capUsed
	}
	if authenticity == models.AuthenticityReplicaDeclared && capReplicaDeclared < factor {
		factor = capReplicaDeclared
	}
	if refurbished && capRefurbished < factor {
		factor = capRefurbished
	}

	return int64(float64(referenceValue) * factor)
}

// ClampListingPrice freezes the listing's VP price at creation time.
func ClampListingPrice(listing *models.Listing) {
	maxVP := MaxListingVP(listing.OriginalPrice, listing.Condition, listing.AuthenticityStatus, listing.IsRefurbished)
	if listing.PriceVP <= 0 || listing.PriceVP > maxVP {
		listing.PriceVP = maxVP
	}
}
