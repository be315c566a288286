package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/models"
	"gatepass-backend/internal/timeutil"
)

// maxNumberAttempts bounds gatepass number allocation. The number space is
// only 1000 values, so a full system must fail loudly instead of looping.
const maxNumberAttempts = 25

// GatepassStore is the persistence surface of the workflow. Every status
// transition method performs a conditional update and returns
// apperrors.ErrConflict when the expected status no longer holds.
type GatepassStore interface {
	Create(ctx context.Context, gp *models.Gatepass, items []models.GatepassItem) error
	Get(ctx context.Context, id int) (*models.Gatepass, error)
	GetByNumber(ctx context.Context, number string) (*models.Gatepass, error)
	Items(ctx context.Context, gatepassID int) ([]models.GatepassItem, error)
	ReplacePending(ctx context.Context, gp *models.Gatepass, items []models.GatepassItem) error
	AdminApprove(ctx context.Context, id, adminID int, at time.Time) error
	AdminDecline(ctx context.Context, id, adminID int, at time.Time, reason string) error
	SecurityVerify(ctx context.Context, id, securityID int, at time.Time) error
	SecurityDecline(ctx context.Context, id, securityID int, at time.Time, reason string) error
	ListByCreator(ctx context.Context, creatorID int, filter models.GatepassFilter) (*models.PagedGatepasses, error)
	ListAwaitingSecurity(ctx context.Context, filter models.GatepassFilter) (*models.PagedGatepasses, error)
	ListAll(ctx context.Context, filter models.GatepassFilter) (*models.PagedGatepasses, error)
	CountByStatus(ctx context.Context) (*models.StatusCounts, error)
}

// AuditStore records workflow actions.
type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
}

// Notifier fans a workflow event out to recipients after the transition has
// committed.
type Notifier interface {
	DispatchAsync(event string, gp *models.Gatepass, recipients []models.User)
}

// RecipientStore resolves notification recipients by role or id.
type RecipientStore interface {
	Get(ctx context.Context, id int) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
}

type GatepassService struct {
	store    GatepassStore
	audit    AuditStore
	notifier Notifier
	users    RecipientStore
}

func NewGatepassService(store GatepassStore, audit AuditStore, notifier Notifier, users RecipientStore) *GatepassService {
	return &GatepassService{
		store:    store,
		audit:    audit,
		notifier: notifier,
		users:    users,
	}
}

// newGatepassNumber draws a random number in the GP000-GP999 space.
func newGatepassNumber() string {
	return fmt.Sprintf("GP%03d", rand.IntN(1000))
}

// Create validates the request, allocates a unique gatepass number with
// bounded retry and inserts the record in pending status.
func (s *GatepassService) Create(ctx context.Context, userID int, req *models.CreateGatepassRequest, ip string) (*models.Gatepass, error) {
	fields, items, err := s.validateFields(req.FromLocation, req.ToLocation, req.MaterialType,
		req.Purpose, req.RequestedDate, req.RequestedTime, req.Items)
	if err != nil {
		return nil, err
	}

	gp := &models.Gatepass{
		FromLocation:  fields.from,
		ToLocation:    fields.to,
		MaterialType:  fields.material,
		Purpose:       fields.purpose,
		RequestedDate: fields.date,
		RequestedTime: fields.timeOfDay,
		Status:        models.StatusPending,
		CreatedBy:     userID,
	}

	for attempt := 0; ; attempt++ {
		if attempt == maxNumberAttempts {
			return nil, apperrors.ErrNumberSpaceExhausted
		}
		gp.GatepassNumber = newGatepassNumber()
		err := s.store.Create(ctx, gp, items)
		if err == nil {
			break
		}
		if errors.Is(err, apperrors.ErrDuplicateNumber) {
			continue
		}
		return nil, err
	}
	gp.Items, _ = s.store.Items(ctx, gp.ID)

	s.writeAudit(ctx, userID, models.ActionGatepassCreated, &gp.ID, ip,
		fmt.Sprintf("Created gatepass %s (%s -> %s)", gp.GatepassNumber, gp.FromLocation, gp.ToLocation))
	s.notify(ctx, models.EventNewGatepass, gp, s.adminRecipients(ctx))

	return gp, nil
}

// Get returns one gatepass with its items. A plain user only sees their own
// records; anyone else's id reads as not found.
func (s *GatepassService) Get(ctx context.Context, userID int, role string, id int) (*models.Gatepass, error) {
	gp, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == models.RoleUser && gp.CreatedBy != userID {
		return nil, apperrors.ErrNotFound
	}

	gp.Items, err = s.store.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	return gp, nil
}

// Update rewrites a pending gatepass owned by the caller. The item set is
// replaced wholesale. Editing a record that already left pending returns
// ErrConflict; editing someone else's record reads as not found.
func (s *GatepassService) Update(ctx context.Context, userID int, id int, req *models.UpdateGatepassRequest, ip string) (*models.Gatepass, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.CreatedBy != userID {
		return nil, apperrors.ErrNotFound
	}
	if current.Status != models.StatusPending {
		return nil, apperrors.ErrConflict
	}

	fields, items, err := s.validateFields(req.FromLocation, req.ToLocation, req.MaterialType,
		req.Purpose, req.RequestedDate, req.RequestedTime, req.Items)
	if err != nil {
		return nil, err
	}

	gp := &models.Gatepass{
		ID:            id,
		FromLocation:  fields.from,
		ToLocation:    fields.to,
		MaterialType:  fields.material,
		Purpose:       fields.purpose,
		RequestedDate: fields.date,
		RequestedTime: fields.timeOfDay,
	}
	if err := s.store.ReplacePending(ctx, gp, items); err != nil {
		return nil, err
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated.Items, _ = s.store.Items(ctx, id)

	s.writeAudit(ctx, userID, models.ActionGatepassEdited, &id, ip,
		fmt.Sprintf("Edited gatepass %s", updated.GatepassNumber))

	return updated, nil
}

// AdminApprove moves a pending gatepass to approved_by_admin. Exactly one
// concurrent approver wins; the rest get ErrConflict.
func (s *GatepassService) AdminApprove(ctx context.Context, adminID, id int, ip string) (*models.Gatepass, error) {
	if err := s.store.AdminApprove(ctx, id, adminID, timeutil.Now()); err != nil {
		return nil, err
	}

	gp, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, adminID, models.ActionGatepassApproved, &id, ip,
		fmt.Sprintf("Approved gatepass %s", gp.GatepassNumber))
	recipients := append(s.creatorRecipients(ctx, gp), s.roleRecipients(ctx, models.RoleSecurity)...)
	s.notify(ctx, models.EventGatepassApproved, gp, recipients)

	return gp, nil
}

// AdminDecline moves a pending gatepass to declined with a mandatory reason.
func (s *GatepassService) AdminDecline(ctx context.Context, adminID, id int, reason, ip string) (*models.Gatepass, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("decline reason is required")
	}

	if err := s.store.AdminDecline(ctx, id, adminID, timeutil.Now(), reason); err != nil {
		return nil, err
	}

	gp, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, adminID, models.ActionGatepassDeclined, &id, ip,
		fmt.Sprintf("Declined gatepass %s: %s", gp.GatepassNumber, reason))
	s.notify(ctx, models.EventGatepassDeclined, gp, s.creatorRecipients(ctx, gp))

	return gp, nil
}

// SecurityVerify moves an admin-approved (or self-approved) gatepass to
// approved_by_security, the final cleared state.
func (s *GatepassService) SecurityVerify(ctx context.Context, securityID, id int, ip string) (*models.Gatepass, error) {
	if err := s.store.SecurityVerify(ctx, id, securityID, timeutil.Now()); err != nil {
		return nil, err
	}

	gp, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, securityID, models.ActionGatepassVerified, &id, ip,
		fmt.Sprintf("Verified gatepass %s at gate", gp.GatepassNumber))
	s.notify(ctx, models.EventGatepassVerified, gp, s.creatorRecipients(ctx, gp))

	return gp, nil
}

// SecurityDecline turns back an admin-approved (or self-approved) gatepass
// at the gate, with a mandatory reason.
func (s *GatepassService) SecurityDecline(ctx context.Context, securityID, id int, reason, ip string) (*models.Gatepass, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("decline reason is required")
	}

	if err := s.store.SecurityDecline(ctx, id, securityID, timeutil.Now(), reason); err != nil {
		return nil, err
	}

	gp, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.writeAudit(ctx, securityID, models.ActionGatepassDeclined, &id, ip,
		fmt.Sprintf("Declined gatepass %s at gate: %s", gp.GatepassNumber, reason))
	s.notify(ctx, models.EventGatepassDeclined, gp, s.creatorRecipients(ctx, gp))

	return gp, nil
}

// ListMine returns one page of the caller's own gatepasses.
func (s *GatepassService) ListMine(ctx context.Context, userID int, filter models.GatepassFilter) (*models.PagedGatepasses, error) {
	return s.store.ListByCreator(ctx, userID, filter)
}

// SecurityQueue returns one page of gatepasses awaiting verification.
func (s *GatepassService) SecurityQueue(ctx context.Context, filter models.GatepassFilter) (*models.PagedGatepasses, error) {
	return s.store.ListAwaitingSecurity(ctx, filter)
}

// ListAll returns one page across every status (admin view).
func (s *GatepassService) ListAll(ctx context.Context, filter models.GatepassFilter) (*models.PagedGatepasses, error) {
	return s.store.ListAll(ctx, filter)
}

// Counts returns the admin dashboard counters.
func (s *GatepassService) Counts(ctx context.Context) (*models.StatusCounts, error) {
	return s.store.CountByStatus(ctx)
}

// LookupByNumber resolves a full gatepass number or its trailing digits,
// as read off a printed pass at the gate. "042" resolves as "GP042".
func (s *GatepassService) LookupByNumber(ctx context.Context, number string) (*models.Gatepass, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, apperrors.Validation("gatepass number is required")
	}
	if !strings.HasPrefix(number, "GP") {
		number = "GP" + number
	}

	gp, err := s.store.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	gp.Items, _ = s.store.Items(ctx, gp.ID)
	return gp, nil
}

// validatedFields holds the normalized create/edit inputs.
type validatedFields struct {
	from      string
	to        string
	material  string
	purpose   *string
	date      time.Time
	timeOfDay string
}

// normalizeLocation lowers case and strips all whitespace, so "Main Gate"
// and "maingate" compare equal.
func normalizeLocation(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func (s *GatepassService) validateFields(from, to, material, purpose, dateStr, timeStr string, inputs []models.GatepassItemInput) (*validatedFields, []models.GatepassItem, error) {
	ve := &apperrors.ValidationError{}

	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	material = strings.TrimSpace(material)
	purpose = strings.TrimSpace(purpose)

	if from == "" {
		ve.Add("from_location is required")
	}
	if to == "" {
		ve.Add("to_location is required")
	}
	if from != "" && to != "" && normalizeLocation(from) == normalizeLocation(to) {
		ve.Add("from_location and to_location must differ")
	}
	if material == "" {
		ve.Add("material_type is required")
	}

	var date time.Time
	if dateStr == "" {
		ve.Add("requested_date is required")
	} else {
		var err error
		date, err = timeutil.ParseDate(dateStr)
		if err != nil {
			ve.Add("requested_date must be in YYYY-MM-DD format")
		} else if date.Before(timeutil.Today()) {
			ve.Add("requested_date cannot be in the past")
		}
	}

	timeStr = strings.TrimSpace(timeStr)
	if timeStr != "" {
		if _, err := time.Parse(timeutil.TimeLayout, timeStr); err != nil {
			ve.Add("requested_time must be in HH:MM format")
		}
	}

	items := make([]models.GatepassItem, 0, len(inputs))
	if len(inputs) == 0 {
		ve.Add("at least one item is required")
	}
	for i, input := range inputs {
		name := strings.TrimSpace(input.ItemName)
		if name == "" {
			ve.Add("item %d: item_name is required", i+1)
		}
		if input.Quantity <= 0 {
			ve.Add("item %d: quantity must be positive", i+1)
		}
		unit := strings.TrimSpace(input.Unit)
		if unit == "" {
			unit = models.UnitOther
		}
		items = append(items, models.GatepassItem{ItemName: name, Quantity: input.Quantity, Unit: unit})
	}

	if ve.Any() {
		return nil, nil, ve
	}

	fields := &validatedFields{
		from:      from,
		to:        to,
		material:  material,
		date:      date,
		timeOfDay: timeStr,
	}
	if purpose != "" {
		fields.purpose = &purpose
	}
	return fields, items, nil
}

// writeAudit records a workflow action after the transition committed. A
// failed audit write is logged, never propagated: the transition itself
// already happened.
func (s *GatepassService) writeAudit(ctx context.Context, actorID int, action string, gatepassID *int, ip, detail string) {
	entry := &models.AuditLogEntry{
		ActorID:    actorID,
		ActionCode: action,
		GatepassID: gatepassID,
		Detail:     detail,
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		log.Printf("[Gatepass] Failed to write audit log (%s): %v", action, err)
	}
}

func (s *GatepassService) notify(ctx context.Context, event string, gp *models.Gatepass, recipients []models.User) {
	if s.notifier == nil || len(recipients) == 0 {
		return
	}
	s.notifier.DispatchAsync(event, gp, recipients)
}

func (s *GatepassService) adminRecipients(ctx context.Context) []models.User {
	admins, err := s.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.Printf("[Gatepass] Failed to resolve admin recipients: %v", err)
		return nil
	}
	return admins
}

func (s *GatepassService) roleRecipients(ctx context.Context, role string) []models.User {
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		log.Printf("[Gatepass] Failed to resolve %s recipients: %v", role, err)
		return nil
	}
	return users
}

func (s *GatepassService) creatorRecipients(ctx context.Context, gp *models.Gatepass) []models.User {
	creator, err := s.users.Get(ctx, gp.CreatedBy)
	if err != nil {
		log.Printf("[Gatepass] Failed to resolve creator of %s: %v", gp.GatepassNumber, err)
		return nil
	}
	return []models.User{*creator}
}
