package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/models"
	"gatepass-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// Archiver uploads generated documents to long-term storage.
type Archiver interface {
	Put(ctx context.Context, gatepassNumber string, pdf []byte) error
}

// DocumentService renders printable gatepass documents. A document exists
// only once the admin approval happened; before that (and after a decline)
// requests read as not found.
type DocumentService struct {
	store   GatepassStore
	users   RecipientStore
	archive Archiver
}

func NewDocumentService(store GatepassStore, users RecipientStore, archive Archiver) *DocumentService {
	return &DocumentService{store: store, users: users, archive: archive}
}

// GatepassPDF renders the printable pass for a gatepass the caller may see.
func (s *DocumentService) GatepassPDF(ctx context.Context, userID int, role string, id int) ([]byte, string, error) {
	gp, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if role == models.RoleUser && gp.CreatedBy != userID {
		return nil, "", apperrors.ErrNotFound
	}
	if !gp.Status.AwaitingSecurity() && gp.Status != models.StatusApprovedBySecurity {
		return nil, "", apperrors.ErrNotFound
	}

	gp.Items, err = s.store.Items(ctx, id)
	if err != nil {
		return nil, "", err
	}

	pdf, err := s.render(ctx, gp)
	if err != nil {
		return nil, "", err
	}

	if s.archive != nil {
		if err := s.archive.Put(ctx, gp.GatepassNumber, pdf); err != nil {
			log.Printf("[Document] Failed to archive %s: %v", gp.GatepassNumber, err)
		}
	}

	return pdf, fmt.Sprintf("%s.pdf", gp.GatepassNumber), nil
}

func (s *DocumentService) render(ctx context.Context, gp *models.Gatepass) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Material Gate Pass", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 8, gp.GatepassNumber, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Movement details box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Movement Details", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("From: %s", gp.FromLocation), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("To: %s", gp.ToLocation), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Date: %s", gp.RequestedDate.Format("02-Jan-2006")), "LB", 0, "L", false, 0, "")
	timeOfDay := gp.RequestedTime
	if timeOfDay == "" {
		timeOfDay = "-"
	}
	pdf.CellFormat(95, 7, fmt.Sprintf("Time: %s", timeOfDay), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Material: %s", gp.MaterialType), "LB", 0, "L", false, 0, "")
	purpose := "-"
	if gp.Purpose != nil {
		purpose = *gp.Purpose
		if len(purpose) > 40 {
			purpose = purpose[:37] + "..."
		}
	}
	pdf.CellFormat(95, 7, fmt.Sprintf("Purpose: %s", purpose), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Items table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Items", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(15, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(105, 7, "Item", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Quantity", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Unit", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for i, item := range gp.Items {
		name := item.ItemName
		if len(name) > 48 {
			name = name[:45] + "..."
		}
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(105, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, item.Unit, "1", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	// Approval trail
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, "Approvals", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 8, s.approvalLine(ctx, "Requested by", &gp.CreatedBy, &gp.CreatedAt), "1", 0, "L", false, 0, "")
	pdf.CellFormat(95, 8, s.approvalLine(ctx, "Approved by", gp.AdminApprovedBy, gp.AdminApprovedAt), "1", 1, "L", false, 0, "")

	if gp.Status == models.StatusApprovedBySecurity {
		pdf.SetFillColor(200, 255, 200)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 10, s.approvalLine(ctx, "VERIFIED AT GATE by", gp.SecurityApprovedBy, gp.SecurityApprovedAt), "1", 1, "C", true, 0, "")
	} else {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 10, "Pending security verification at gate", "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *DocumentService) approvalLine(ctx context.Context, label string, userID *int, at *time.Time) string {
	if userID == nil {
		return label + ": -"
	}
	name := fmt.Sprintf("user %d", *userID)
	if u, err := s.users.Get(ctx, *userID); err == nil {
		name = u.Name
	}
	if at == nil {
		return fmt.Sprintf("%s: %s", label, name)
	}
	return fmt.Sprintf("%s: %s on %s", label, name, at.In(timeutil.IST).Format("02-Jan-2006 03:04 PM"))
}
