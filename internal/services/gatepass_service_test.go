package services

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/models"
	"gatepass-backend/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGatepassStore is an in-memory store that mirrors the conditional
// update semantics of the real repository: transitions succeed only from
// the expected status and report ErrConflict otherwise.
type fakeGatepassStore struct {
	mu      sync.Mutex
	nextID  int
	byID    map[int]*models.Gatepass
	items   map[int][]models.GatepassItem
	numbers map[string]int

	// duplicatesLeft forces Create to report a number collision that
	// many times before accepting.
	duplicatesLeft int
}

func newFakeGatepassStore() *fakeGatepassStore {
	return &fakeGatepassStore{
		byID:    make(map[int]*models.Gatepass),
		items:   make(map[int][]models.GatepassItem),
		numbers: make(map[string]int),
	}
}

func (f *fakeGatepassStore) Create(ctx context.Context, gp *models.Gatepass, items []models.GatepassItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duplicatesLeft != 0 {
		if f.duplicatesLeft > 0 {
			f.duplicatesLeft--
		}
		return apperrors.ErrDuplicateNumber
	}
	if _, taken := f.numbers[gp.GatepassNumber]; taken {
		return apperrors.ErrDuplicateNumber
	}
	f.nextID++
	gp.ID = f.nextID
	gp.CreatedAt = time.Now()
	gp.UpdatedAt = gp.CreatedAt
	stored := *gp
	stored.Items = nil
	f.byID[gp.ID] = &stored
	f.numbers[gp.GatepassNumber] = gp.ID
	f.items[gp.ID] = append([]models.GatepassItem(nil), items...)
	return nil
}

func (f *fakeGatepassStore) Get(ctx context.Context, id int) (*models.Gatepass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gp, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *gp
	return &out, nil
}

func (f *fakeGatepassStore) GetByNumber(ctx context.Context, number string) (*models.Gatepass, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.numbers[number]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *f.byID[id]
	return &out, nil
}

func (f *fakeGatepassStore) Items(ctx context.Context, gatepassID int) ([]models.GatepassItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.GatepassItem(nil), f.items[gatepassID]...), nil
}

func (f *fakeGatepassStore) ReplacePending(ctx context.Context, gp *models.Gatepass, items []models.GatepassItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.byID[gp.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if current.Status != models.StatusPending {
		return apperrors.ErrConflict
	}
	current.FromLocation = gp.FromLocation
	current.ToLocation = gp.ToLocation
	current.MaterialType = gp.MaterialType
	current.Purpose = gp.Purpose
	current.RequestedDate = gp.RequestedDate
	current.RequestedTime = gp.RequestedTime
	current.UpdatedAt = time.Now()
	f.items[gp.ID] = append([]models.GatepassItem(nil), items...)
	return nil
}

func (f *fakeGatepassStore) transition(id int, from []models.Status, apply func(*models.Gatepass)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	gp, ok := f.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	for _, s := range from {
		if gp.Status == s {
			apply(gp)
			gp.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperrors.ErrConflict
}

func (f *fakeGatepassStore) AdminApprove(ctx context.Context, id, adminID int, at time.Time) error {
	return f.transition(id, []models.Status{models.StatusPending}, func(gp *models.Gatepass) {
		gp.Status = models.StatusApprovedByAdmin
		gp.AdminApprovedBy = &adminID
		gp.AdminApprovedAt = &at
	})
}

func (f *fakeGatepassStore) AdminDecline(ctx context.Context, id, adminID int, at time.Time, reason string) error {
	return f.transition(id, []models.Status{models.StatusPending}, func(gp *models.Gatepass) {
		gp.Status = models.StatusDeclined
		gp.DeclinedBy = &adminID
		gp.DeclinedAt = &at
		gp.DeclineReason = &reason
	})
}

func (f *fakeGatepassStore) SecurityVerify(ctx context.Context, id, securityID int, at time.Time) error {
	return f.transition(id, models.AwaitingSecurityStatuses, func(gp *models.Gatepass) {
		gp.Status = models.StatusApprovedBySecurity
		gp.SecurityApprovedBy = &securityID
		gp.SecurityApprovedAt = &at
	})
}

func (f *fakeGatepassStore) SecurityDecline(ctx context.Context, id, securityID int, at time.Time, reason string) error {
	return f.transition(id, models.AwaitingSecurityStatuses, func(gp *models.Gatepass) {
		gp.Status = models.StatusDeclined
		gp.DeclinedBy = &securityID
		gp.DeclinedAt = &at
		gp.DeclineReason = &reason
	})
}

func (f *fakeGatepassStore) ListByCreator(ctx context.Context, creatorID int, filter models.GatepassFilter) (*models.PagedGatepasses, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &models.PagedGatepasses{Page: 1, PageSize: models.PageSize}
	for _, gp := range f.byID {
		if gp.CreatedBy == creatorID {
			out.Gatepasses = append(out.Gatepasses, *gp)
			out.Total++
		}
	}
	return out, nil
}

func (f *fakeGatepassStore) ListAwaitingSecurity(ctx context.Context, filter models.GatepassFilter) (*models.PagedGatepasses, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &models.PagedGatepasses{Page: 1, PageSize: models.PageSize}
	for _, gp := range f.byID {
		if gp.Status.AwaitingSecurity() {
			out.Gatepasses = append(out.Gatepasses, *gp)
			out.Total++
		}
	}
	return out, nil
}

func (f *fakeGatepassStore) ListAll(ctx context.Context, filter models.GatepassFilter) (*models.PagedGatepasses, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &models.PagedGatepasses{Page: 1, PageSize: models.PageSize}
	for _, gp := range f.byID {
		out.Gatepasses = append(out.Gatepasses, *gp)
		out.Total++
	}
	return out, nil
}

func (f *fakeGatepassStore) CountByStatus(ctx context.Context) (*models.StatusCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := &models.StatusCounts{}
	for _, gp := range f.byID {
		counts.Total++
		switch {
		case gp.Status == models.StatusPending:
			counts.Pending++
		case gp.Status.AwaitingSecurity():
			counts.AwaitingSecurity++
		case gp.Status == models.StatusApprovedBySecurity:
			counts.ApprovedBySecurity++
		case gp.Status == models.StatusDeclined:
			counts.Declined++
		}
	}
	return counts, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []models.AuditLogEntry
}

func (f *fakeAuditStore) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.ActionCode)
	}
	return out
}

type dispatched struct {
	event      string
	recipients []models.User
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []dispatched
}

func (f *fakeNotifier) DispatchAsync(event string, gp *models.Gatepass, recipients []models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, dispatched{event: event, recipients: recipients})
}

type fakeUserStore struct {
	users map[int]models.User
}

func (f *fakeUserStore) Get(ctx context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserStore) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func newTestService() (*GatepassService, *fakeGatepassStore, *fakeAuditStore, *fakeNotifier) {
	store := newFakeGatepassStore()
	audit := &fakeAuditStore{}
	notifier := &fakeNotifier{}
	users := &fakeUserStore{users: map[int]models.User{
		1: {ID: 1, Name: "Asha", Email: "asha@example.com", Role: models.RoleUser, IsActive: true},
		2: {ID: 2, Name: "Ravi", Email: "ravi@example.com", Role: models.RoleAdmin, IsActive: true},
		3: {ID: 3, Name: "Gate Desk", Email: "gate@example.com", Role: models.RoleSecurity, IsActive: true},
	}}
	return NewGatepassService(store, audit, notifier, users), store, audit, notifier
}

func validCreateRequest() *models.CreateGatepassRequest {
	return &models.CreateGatepassRequest{
		FromLocation:  "Warehouse A",
		ToLocation:    "Main Gate",
		MaterialType:  "Electronics",
		Purpose:       "Repair shipment",
		RequestedDate: timeutil.Today().AddDate(0, 0, 1).Format(timeutil.DateLayout),
		RequestedTime: "14:30",
		Items: []models.GatepassItemInput{
			{ItemName: "Router", Quantity: 2, Unit: "Each"},
			{ItemName: "Cable spool", Quantity: 1.5, Unit: "Kg"},
		},
	}
}

func TestCreateGatepass(t *testing.T) {
	svc, _, audit, notifier := newTestService()

	gp, err := svc.Create(context.Background(), 1, validCreateRequest(), "10.0.0.1")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^GP\d{3}$`), gp.GatepassNumber)
	assert.Equal(t, models.StatusPending, gp.Status)
	assert.Equal(t, 1, gp.CreatedBy)
	assert.Len(t, gp.Items, 2)

	assert.Equal(t, []string{models.ActionGatepassCreated}, audit.actions())
	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.EventNewGatepass, notifier.events[0].event)
	require.Len(t, notifier.events[0].recipients, 1)
	assert.Equal(t, models.RoleAdmin, notifier.events[0].recipients[0].Role)
}

func TestCreateGatepassRetriesOnNumberCollision(t *testing.T) {
	svc, store, _, _ := newTestService()
	store.duplicatesLeft = 3

	gp, err := svc.Create(context.Background(), 1, validCreateRequest(), "")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^GP\d{3}$`), gp.GatepassNumber)
}

func TestCreateGatepassNumberSpaceExhausted(t *testing.T) {
	svc, store, audit, _ := newTestService()
	store.duplicatesLeft = -1 // every attempt collides

	_, err := svc.Create(context.Background(), 1, validCreateRequest(), "")
	assert.ErrorIs(t, err, apperrors.ErrNumberSpaceExhausted)
	assert.Empty(t, audit.actions())
}

func TestCreateGatepassValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*models.CreateGatepassRequest)
		message string
	}{
		{
			name:    "missing from location",
			mutate:  func(r *models.CreateGatepassRequest) { r.FromLocation = "  " },
			message: "from_location is required",
		},
		{
			name: "locations equal after normalization",
			mutate: func(r *models.CreateGatepassRequest) {
				r.FromLocation = "Main Gate"
				r.ToLocation = "  mainGATE "
			},
			message: "from_location and to_location must differ",
		},
		{
			name: "requested date in the past",
			mutate: func(r *models.CreateGatepassRequest) {
				r.RequestedDate = timeutil.Today().AddDate(0, 0, -1).Format(timeutil.DateLayout)
			},
			message: "requested_date cannot be in the past",
		},
		{
			name:    "bad time format",
			mutate:  func(r *models.CreateGatepassRequest) { r.RequestedTime = "2pm" },
			message: "requested_time must be in HH:MM format",
		},
		{
			name:    "no items",
			mutate:  func(r *models.CreateGatepassRequest) { r.Items = nil },
			message: "at least one item is required",
		},
		{
			name: "zero quantity",
			mutate: func(r *models.CreateGatepassRequest) {
				r.Items[0].Quantity = 0
			},
			message: "item 1: quantity must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)
			_, err := svc.Create(ctx, 1, req, "")
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCreateGatepassDefaultsUnit(t *testing.T) {
	svc, _, _, _ := newTestService()
	req := validCreateRequest()
	req.Items = []models.GatepassItemInput{{ItemName: "Ladder", Quantity: 1, Unit: "  "}}

	gp, err := svc.Create(context.Background(), 1, req, "")
	require.NoError(t, err)
	require.Len(t, gp.Items, 1)
	assert.Equal(t, models.UnitOther, gp.Items[0].Unit)
}

func TestFullApprovalWorkflow(t *testing.T) {
	svc, _, audit, notifier := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "10.0.0.1")
	require.NoError(t, err)

	gp, err = svc.AdminApprove(ctx, 2, gp.ID, "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedByAdmin, gp.Status)
	require.NotNil(t, gp.AdminApprovedBy)
	assert.Equal(t, 2, *gp.AdminApprovedBy)
	assert.NotNil(t, gp.AdminApprovedAt)

	gp, err = svc.SecurityVerify(ctx, 3, gp.ID, "10.0.0.3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedBySecurity, gp.Status)
	require.NotNil(t, gp.SecurityApprovedBy)
	assert.Equal(t, 3, *gp.SecurityApprovedBy)

	assert.Equal(t, []string{
		models.ActionGatepassCreated,
		models.ActionGatepassApproved,
		models.ActionGatepassVerified,
	}, audit.actions())

	// approval notifies creator plus security, verification the creator
	require.Len(t, notifier.events, 3)
	assert.Equal(t, models.EventGatepassApproved, notifier.events[1].event)
	assert.Len(t, notifier.events[1].recipients, 2)
	assert.Equal(t, models.EventGatepassVerified, notifier.events[2].event)
}

func TestConcurrentApproveOneWins(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)

	_, err = svc.AdminApprove(ctx, 2, gp.ID, "")
	require.NoError(t, err)

	_, err = svc.AdminApprove(ctx, 2, gp.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestConflictFiresNoDuplicateNotification(t *testing.T) {
	svc, _, _, notifier := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)
	_, err = svc.AdminApprove(ctx, 2, gp.ID, "")
	require.NoError(t, err)
	_, err = svc.SecurityVerify(ctx, 3, gp.ID, "")
	require.NoError(t, err)
	sent := len(notifier.events)

	_, err = svc.SecurityVerify(ctx, 3, gp.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Len(t, notifier.events, sent)
}

func TestDeclineRequiresReason(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)

	_, err = svc.AdminDecline(ctx, 2, gp.ID, "   ", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// the record is untouched and still approvable
	_, err = svc.AdminApprove(ctx, 2, gp.ID, "")
	assert.NoError(t, err)
}

func TestTerminalStatesAbsorbTransitions(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)
	_, err = svc.AdminDecline(ctx, 2, gp.ID, "incomplete details", "")
	require.NoError(t, err)

	_, err = svc.AdminApprove(ctx, 2, gp.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = svc.SecurityVerify(ctx, 3, gp.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = svc.SecurityDecline(ctx, 3, gp.ID, "already declined", "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSecurityVerifyRequiresApproval(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)

	_, err = svc.SecurityVerify(ctx, 3, gp.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestSelfApprovedVerifies(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)
	store.byID[gp.ID].Status = models.StatusSelfApproved

	gp, err = svc.SecurityVerify(ctx, 3, gp.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApprovedBySecurity, gp.Status)
}

func TestGetOwnershipCollapsesToNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, 99, models.RoleUser, gp.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := svc.Get(ctx, 99, models.RoleAdmin, gp.ID)
	require.NoError(t, err)
	assert.Equal(t, gp.ID, got.ID)
}

func TestUpdatePendingOnly(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)

	edit := &models.UpdateGatepassRequest{
		FromLocation:  "Warehouse B",
		ToLocation:    "Service Bay",
		MaterialType:  "Tools",
		RequestedDate: timeutil.Today().AddDate(0, 0, 2).Format(timeutil.DateLayout),
		Items:         []models.GatepassItemInput{{ItemName: "Drill", Quantity: 1, Unit: "Each"}},
	}

	// non-owner reads as not found
	_, err = svc.Update(ctx, 99, gp.ID, edit, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	updated, err := svc.Update(ctx, 1, gp.ID, edit, "")
	require.NoError(t, err)
	assert.Equal(t, "Warehouse B", updated.FromLocation)
	assert.Equal(t, gp.GatepassNumber, updated.GatepassNumber)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Drill", updated.Items[0].ItemName)

	// re-applying the same edit leaves the item set unchanged
	again, err := svc.Update(ctx, 1, gp.ID, edit, "")
	require.NoError(t, err)
	require.Len(t, again.Items, 1)
	assert.Equal(t, "Drill", again.Items[0].ItemName)

	_, err = svc.AdminApprove(ctx, 2, gp.ID, "")
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, gp.ID, edit, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestLookupByNumber(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	gp, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)

	digits := gp.GatepassNumber[2:]
	found, err := svc.LookupByNumber(ctx, fmt.Sprintf("  %s ", digits))
	require.NoError(t, err)
	assert.Equal(t, gp.ID, found.ID)

	found, err = svc.LookupByNumber(ctx, gp.GatepassNumber)
	require.NoError(t, err)
	assert.Equal(t, gp.ID, found.ID)

	_, err = svc.LookupByNumber(ctx, "GP999")
	if _, taken := store.numbers["GP999"]; !taken {
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	}

	_, err = svc.LookupByNumber(ctx, "  ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestCounts(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)
	second, err := svc.Create(ctx, 1, validCreateRequest(), "")
	require.NoError(t, err)

	_, err = svc.AdminApprove(ctx, 2, first.ID, "")
	require.NoError(t, err)
	_, err = svc.AdminDecline(ctx, 2, second.ID, "not needed", "")
	require.NoError(t, err)

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Pending)
	assert.Equal(t, 1, counts.AwaitingSecurity)
	assert.Equal(t, 1, counts.Declined)
	assert.Equal(t, 2, counts.Total)
}
