package services

import (
	"fmt"
	"strings"

	"venue-booking-server/models"
)

// PromoOffer describes a resolved promotion: either percent-off (basis
// points) or a fixed amount-off in a specific currency.
type PromoOffer struct {
	Code           string
	PercentOffBps  int64
	AmountOffCents int64
	Currency       string
}

// Quote is a priced reservation. All money is integer minor units.
type Quote struct {
	SubtotalCents int64  `json:"subtotalCents"`
	DiscountCents int64  `json:"discountCents"`
	FeeCents      int64  `json:"feeCents"`
	TotalCents    int64  `json:"totalCents"`
	Currency      string `json:"currency"`
}

// PriceBooking computes the price snapshot for a player count against a
// game's tier table and the org's fee. The fee is recomputed against the
// discounted subtotal so the customer-visible fee always matches what they
// actually pay.
func PriceBooking(game *models.Game, feeBps int, players int, promo *PromoOffer) (Quote, error) {
	tier := tierFor(game.PriceTiers, players)
	if tier == nil {
		return Quote{}, &PricingError{
			Code:    PricingNoTier,
			Message: fmt.Sprintf("no price tier covers %d players", players),
		}
	}

	subtotal := tier.UnitPriceCents * int64(players)

	var discount int64
	if promo != nil {
		switch {
		case promo.PercentOffBps > 0:
			discount = subtotal * promo.PercentOffBps / 10000
		case promo.AmountOffCents > 0:
			if !strings.EqualFold(promo.Currency, game.Currency) {
				return Quote{}, &PricingError{
					Code:    PricingCurrencyMismatch,
					Message: fmt.Sprintf("promo currency %s does not match %s", promo.Currency, game.Currency),
				}
			}
			discount = promo.AmountOffCents
		}
		if discount < 0 {
			discount = 0
		}
		if discount > subtotal {
			discount = subtotal
		}
	}

	discounted := subtotal - discount
	fee := roundBps(discounted, int64(feeBps))

	return Quote{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		FeeCents:      fee,
		TotalCents:    discounted + fee,
		Currency:      game.Currency,
	}, nil
}

// DepositCents computes the up-front charge for a total under the org's
// payment mode. Rounds half up.
func DepositCents(totalCents int64, depositPercent int) int64 {
	return (totalCents*int64(depositPercent) + 50) / 100
}

// ExpectedChargeCents is the amount the provider must report for a hold's
// price snapshot under the given payment mode.
func ExpectedChargeCents(totalCents int64, paymentMode string, depositPercent int) int64 {
	if paymentMode == models.PaymentModeDeposit {
		return DepositCents(totalCents, depositPercent)
	}
	return totalCents
}

// ValidateTiers checks that tiers are ordered, non-overlapping, and cover
// [minPlayers, maxPlayers] without gaps.
func ValidateTiers(tiers []models.PriceTier, minPlayers, maxPlayers int) error {
	if len(tiers) == 0 {
		return fmt.Errorf("at least one price tier is required")
	}
	if tiers[0].MinPlayers > minPlayers {
		return fmt.Errorf("tiers start at %d players but game allows %d", tiers[0].MinPlayers, minPlayers)
	}
	for i, t := range tiers {
		if t.MinPlayers > t.MaxPlayers {
			return fmt.Errorf("tier %d: minPlayers > maxPlayers", i)
		}
		if t.UnitPriceCents < 0 {
			return fmt.Errorf("tier %d: negative price", i)
		}
		if i > 0 && t.MinPlayers != tiers[i-1].MaxPlayers+1 {
			return fmt.Errorf("tier %d: gap or overlap after %d players", i, tiers[i-1].MaxPlayers)
		}
	}
	if tiers[len(tiers)-1].MaxPlayers < maxPlayers {
		return fmt.Errorf("tiers end at %d players but game allows %d", tiers[len(tiers)-1].MaxPlayers, maxPlayers)
	}
	return nil
}

func tierFor(tiers []models.PriceTier, players int) *models.PriceTier {
	for i := range tiers {
		if players >= tiers[i].MinPlayers && players <= tiers[i].MaxPlayers {
			return &tiers[i]
		}
	}
	return nil
}

// roundBps applies a basis-point rate with half-up rounding.
func roundBps(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
