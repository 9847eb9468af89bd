package models

import "time"

// Modality tags how a meeting takes place.
type Modality string

const (
	ModalityInPerson Modality = "in-person"
	ModalityVirtual  Modality = "virtual"
	ModalityHybrid   Modality = "hybrid"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityInPerson, ModalityVirtual, ModalityHybrid:
		return true
	}
	return false
}

// Accepts reports whether an appointment of modality req may be booked on a slot of modality m.
// Hybrid slots take either in-person or virtual attendees.
func (m Modality) Accepts(req Modality) bool {
	if m == req {
		return true
	}
	return m == ModalityHybrid && (req == ModalityInPerson || req == ModalityVirtual)
}

// TimeSlot is a bookable window owned by one exhibitor. Date is YYYY-MM-DD, times are HH:MM.
type TimeSlot struct {
	ID              string    `db:"id" json:"id"`
	ExhibitorID     string    `db:"exhibitor_id" json:"exhibitorId"`
	Date            string    `db:"date" json:"date"`
	StartTime       string    `db:"start_time" json:"startTime"`
	EndTime         string    `db:"end_time" json:"endTime"`
	Duration        int       `db:"duration" json:"duration"`
	Type            Modality  `db:"type" json:"type"`
	MaxBookings     int       `db:"max_bookings" json:"maxBookings"`
	CurrentBookings int       `db:"current_bookings" json:"currentBookings"`
	Available       bool      `db:"available" json:"available"`
	Location        string    `db:"location" json:"location"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// HasCapacity reports whether another confirmation fits.
func (s *TimeSlot) HasCapacity() bool {
	return s.CurrentBookings < s.MaxBookings
}

// TimeSlotFilter narrows slot listings for one exhibitor.
type TimeSlotFilter struct {
	ExhibitorID   string
	From          string
	To            string
	AvailableOnly bool
}
