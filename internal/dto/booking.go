package dto

import "github.com/noah-isme/siports-api/internal/models"

// CreateSlotRequest describes one bookable window. Omitted maxBookings defaults to 1.
type CreateSlotRequest struct {
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string          `json:"startTime" validate:"required,datetime=15:04"`
	EndTime     string          `json:"endTime" validate:"required,datetime=15:04"`
	Type        models.Modality `json:"type" validate:"required,oneof=in-person virtual hybrid"`
	MaxBookings *int            `json:"maxBookings" validate:"omitempty,min=1,max=500"`
	Location    string          `json:"location" validate:"max=255"`
}

// BulkCreateSlotsRequest creates many slots atomically.
type BulkCreateSlotsRequest struct {
	Slots []CreateSlotRequest `json:"slots" validate:"required,min=1,max=500,dive"`
}

// BulkCreateSlotsResponse reports the created slots.
type BulkCreateSlotsResponse struct {
	Created int               `json:"created"`
	Slots   []models.TimeSlot `json:"slots"`
}

// SlotQuery narrows slot listings.
type SlotQuery struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	All  bool   `form:"all"`
}

// RequestAppointmentRequest asks for a meeting on a slot. VisitorID is only honoured for admins.
type RequestAppointmentRequest struct {
	TimeSlotID string          `json:"timeSlotId" validate:"required"`
	Message    string          `json:"message" validate:"max=1000"`
	Type       models.Modality `json:"type" validate:"omitempty,oneof=in-person virtual"`
	VisitorID  string          `json:"visitorId,omitempty"`
}

// CancelAppointmentRequest carries an optional reason.
type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// AgendaFormat selects the export encoding.
type AgendaFormat string

const (
	AgendaCSV AgendaFormat = "csv"
	AgendaPDF AgendaFormat = "pdf"
)

// AgendaExport is a rendered agenda file.
type AgendaExport struct {
	Filename    string
	ContentType string
	Content     []byte
}
