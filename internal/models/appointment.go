package models

import "time"

// AppointmentStatus enumerates the appointment lifecycle.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Active reports whether the status still counts against capacity or quotas.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentPending || s == AppointmentConfirmed
}

// CanTransition reports whether the state machine allows from -> to.
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	switch s {
	case AppointmentPending:
		return to == AppointmentConfirmed || to == AppointmentCancelled
	case AppointmentConfirmed:
		return to == AppointmentCancelled
	}
	return false
}

// Appointment links a visitor to an exhibitor time slot.
type Appointment struct {
	ID           string            `db:"id" json:"id"`
	TimeSlotID   string            `db:"time_slot_id" json:"timeSlotId"`
	ExhibitorID  string            `db:"exhibitor_id" json:"exhibitorId"`
	VisitorID    string            `db:"visitor_id" json:"visitorId"`
	Status       AppointmentStatus `db:"status" json:"status"`
	Message      string            `db:"message" json:"message"`
	Type         Modality          `db:"type" json:"type"`
	CancelReason *string           `db:"cancel_reason" json:"cancelReason,omitempty"`
	ConfirmedAt  *time.Time        `db:"confirmed_at" json:"confirmedAt,omitempty"`
	CancelledAt  *time.Time        `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updatedAt"`
}

// AppointmentDetail is an appointment joined with its slot and exhibitor for listings.
type AppointmentDetail struct {
	Appointment
	SlotDate     string   `db:"slot_date" json:"slotDate"`
	SlotStart    string   `db:"slot_start" json:"slotStart"`
	SlotEnd      string   `db:"slot_end" json:"slotEnd"`
	SlotType     Modality `db:"slot_type" json:"slotType"`
	SlotLocation string   `db:"slot_location" json:"slotLocation"`
	CompanyName  string   `db:"company_name" json:"companyName"`
	VisitorName  string   `db:"visitor_name" json:"visitorName"`
}
