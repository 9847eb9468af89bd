package models

// ProfileKind distinguishes who is booking.
type ProfileKind string

const (
	ProfileVisitor ProfileKind = "visitor"
	ProfilePartner ProfileKind = "partner"
)

// Visitor pass levels.
const (
	LevelFree    = "free"
	LevelPremium = "premium"
	LevelVIP     = "vip"
)

// Partner tiers.
const (
	TierMuseum   = "museum"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// RequesterTier is the booking-relevant view of a visitor or partner profile.
type RequesterTier struct {
	UserID string      `db:"user_id" json:"userId"`
	Kind   ProfileKind `db:"kind" json:"kind"`
	Level  string      `db:"level" json:"level"`
}
