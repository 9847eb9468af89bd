package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	"github.com/noah-isme/siports-api/pkg/export"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

var agendaHeaders = []string{"Date", "Heure", "Visiteur", "Statut", "Type", "Lieu", "Message"}

var agendaStatusLabels = map[models.AppointmentStatus]string{
	models.AppointmentPending:   "En attente",
	models.AppointmentConfirmed: "Confirmé",
}

var agendaTypeLabels = map[models.Modality]string{
	models.ModalityInPerson: "Présentiel",
	models.ModalityVirtual:  "Virtuel",
	models.ModalityHybrid:   "Hybride",
}

type agendaSource interface {
	ListForExhibitor(ctx context.Context, exhibitorID string, includeCancelled bool) ([]models.AppointmentDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders exhibitor agendas.
type ExportService struct {
	appointments agendaSource
	exhibitors   exhibitorReader
	csv          csvRenderer
	pdf          pdfRenderer
	logger       *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(appointments agendaSource, exhibitors exhibitorReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{appointments: appointments, exhibitors: exhibitors, csv: csv, pdf: pdf, logger: logger}
}

// ExhibitorAgenda renders the non-cancelled appointments of an exhibitor in date order.
func (s *ExportService) ExhibitorAgenda(ctx context.Context, exhibitorID string, format dto.AgendaFormat, actor *models.JWTClaims) (*dto.AgendaExport, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if format == "" {
		format = dto.AgendaCSV
	}
	if format != dto.AgendaCSV && format != dto.AgendaPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	exhibitor, err := s.exhibitors.FindByID(ctx, exhibitorID)
	if err != nil {
		return nil, mapExhibitorLookup(err)
	}
	if !actor.IsAdmin() && exhibitor.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}

	items, err := s.appointments.ListForExhibitor(ctx, exhibitorID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load agenda")
	}
	dataset := buildAgendaDataset(items)

	var payload []byte
	contentType := "text/csv; charset=utf-8"
	switch format {
	case dto.AgendaPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Agenda %s", exhibitor.CompanyName))
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render agenda")
	}

	s.logger.Info("agenda exported",
		zap.String("exhibitor_id", exhibitorID),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &dto.AgendaExport{
		Filename:    agendaFilename(exhibitor.CompanyName, format),
		ContentType: contentType,
		Content:     payload,
	}, nil
}

func buildAgendaDataset(items []models.AppointmentDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		if item.Status == models.AppointmentCancelled {
			continue
		}
		rows = append(rows, map[string]string{
			"Date":     item.SlotDate,
			"Heure":    fmt.Sprintf("%s-%s", item.SlotStart, item.SlotEnd),
			"Visiteur": agendaVisitor(item),
			"Statut":   labelOr(agendaStatusLabels[item.Status], string(item.Status)),
			"Type":     labelOr(agendaTypeLabels[item.Type], string(item.Type)),
			"Lieu":     item.SlotLocation,
			"Message":  item.Message,
		})
	}
	return export.Dataset{Headers: agendaHeaders, Rows: rows}
}

func agendaVisitor(item models.AppointmentDetail) string {
	if item.VisitorName != "" {
		return item.VisitorName
	}
	return item.VisitorID
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

func agendaFilename(company string, format dto.AgendaFormat) string {
	timestamp := time.Now().UTC().Format("20060102")
	return fmt.Sprintf("agenda_%s_%s.%s", sanitizeFilename(strings.ToLower(company)), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
