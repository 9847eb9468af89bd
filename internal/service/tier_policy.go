package service

import (
	"fmt"

	"github.com/noah-isme/siports-api/internal/models"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

const unlimitedQuota = -1

// vip is the legacy name of the premium pass.
var visitorQuotas = map[string]int{
	models.LevelFree:    0,
	models.LevelPremium: unlimitedQuota,
	models.LevelVIP:     unlimitedQuota,
}

var partnerQuotas = map[string]int{
	models.TierMuseum:   20,
	models.TierSilver:   50,
	models.TierGold:     100,
	models.TierPlatinum: unlimitedQuota,
}

// appointmentQuota returns how many active appointments a tier may hold, or unlimitedQuota.
// Unknown levels fall back to the lowest tier of their kind.
func appointmentQuota(tier models.RequesterTier) int {
	if tier.Kind == models.ProfilePartner {
		if q, ok := partnerQuotas[tier.Level]; ok {
			return q
		}
		return partnerQuotas[models.TierMuseum]
	}
	if q, ok := visitorQuotas[tier.Level]; ok {
		return q
	}
	return visitorQuotas[models.LevelFree]
}

// allowsModality reports whether a tier may book a slot of the given modality.
// Visitors without a bookable quota are limited to in-person meetings.
func allowsModality(tier models.RequesterTier, slotType models.Modality) bool {
	if tier.Kind == models.ProfileVisitor && appointmentQuota(tier) == 0 {
		return slotType == models.ModalityInPerson
	}
	return true
}

// checkTier enforces the booking policy for a requester holding active appointments.
// A free pass has quota 0, so every free request is refused either way. The modality gate runs
// first only so a free visitor targeting a virtual slot is told about the modality, not the count.
func checkTier(tier models.RequesterTier, slotType models.Modality, active int) error {
	if !allowsModality(tier, slotType) {
		return appErrors.Clone(appErrors.ErrTierQuota, fmt.Sprintf("tier quota: %s pass cannot book %s slots", tier.Level, slotType))
	}
	quota := appointmentQuota(tier)
	if quota != unlimitedQuota && active >= quota {
		return appErrors.Clone(appErrors.ErrTierQuota, fmt.Sprintf("tier quota: %s allows %d active appointments", tier.Level, quota))
	}
	return nil
}
