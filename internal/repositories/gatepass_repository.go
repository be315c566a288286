package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const gatepassColumns = `
	id, gatepass_number, from_location, to_location, material_type, purpose,
	requested_date, requested_time, status, created_by,
	admin_approved_by, admin_approved_at, security_approved_by, security_approved_at,
	declined_by, declined_at, decline_reason, created_at, updated_at`

type GatepassRepository struct {
	DB *pgxpool.Pool
}

func NewGatepassRepository(db *pgxpool.Pool) *GatepassRepository {
	return &GatepassRepository{DB: db}
}

// isUniqueViolation reports a Postgres unique-constraint error (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a gatepass and its items in one transaction. A collision on
// gatepass_number surfaces as apperrors.ErrDuplicateNumber so the service
// can retry with a fresh number.
func (r *GatepassRepository) Create(ctx context.Context, gp *models.Gatepass, items []models.GatepassItem) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create gatepass: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO gatepasses (
			gatepass_number, from_location, to_location, material_type, purpose,
			requested_date, requested_time, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		gp.GatepassNumber, gp.FromLocation, gp.ToLocation, gp.MaterialType, gp.Purpose,
		gp.RequestedDate, gp.RequestedTime, gp.Status, gp.CreatedBy,
	).Scan(&gp.ID, &gp.CreatedAt, &gp.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrDuplicateNumber
		}
		return fmt.Errorf("insert gatepass: %w", err)
	}

	if err := insertItems(ctx, tx, gp.ID, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertItems(ctx context.Context, tx pgx.Tx, gatepassID int, items []models.GatepassItem) error {
	query := `
		INSERT INTO gatepass_items (gatepass_id, item_name, quantity, unit)
		VALUES ($1, $2, $3, $4)
	`
	for i := range items {
		if _, err := tx.Exec(ctx, query, gatepassID, items[i].ItemName, items[i].Quantity, items[i].Unit); err != nil {
			return fmt.Errorf("insert gatepass item: %w", err)
		}
	}
	return nil
}

// Get retrieves a gatepass by ID, without its items.
func (r *GatepassRepository) Get(ctx context.Context, id int) (*models.Gatepass, error) {
	query := `SELECT` + gatepassColumns + ` FROM gatepasses WHERE id = $1`

	gp := &models.Gatepass{}
	err := r.DB.QueryRow(ctx, query, id).Scan(
		&gp.ID, &gp.GatepassNumber, &gp.FromLocation, &gp.ToLocation, &gp.MaterialType, &gp.Purpose,
		&gp.RequestedDate, &gp.RequestedTime, &gp.Status, &gp.CreatedBy,
		&gp.AdminApprovedBy, &gp.AdminApprovedAt, &gp.SecurityApprovedBy, &gp.SecurityApprovedAt,
		&gp.DeclinedBy, &gp.DeclinedAt, &gp.DeclineReason, &gp.CreatedAt, &gp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return gp, nil
}

// GetByNumber retrieves a gatepass by its human-facing number.
func (r *GatepassRepository) GetByNumber(ctx context.Context, number string) (*models.Gatepass, error) {
	query := `SELECT` + gatepassColumns + ` FROM gatepasses WHERE gatepass_number = $1`

	gp := &models.Gatepass{}
	err := r.DB.QueryRow(ctx, query, number).Scan(
		&gp.ID, &gp.GatepassNumber, &gp.FromLocation, &gp.ToLocation, &gp.MaterialType, &gp.Purpose,
		&gp.RequestedDate, &gp.RequestedTime, &gp.Status, &gp.CreatedBy,
		&gp.AdminApprovedBy, &gp.AdminApprovedAt, &gp.SecurityApprovedBy, &gp.SecurityApprovedAt,
		&gp.DeclinedBy, &gp.DeclinedAt, &gp.DeclineReason, &gp.CreatedAt, &gp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return gp, nil
}

// Items retrieves the item lines of a gatepass.
func (r *GatepassRepository) Items(ctx context.Context, gatepassID int) ([]models.GatepassItem, error) {
	query := `
		SELECT id, gatepass_id, item_name, quantity, unit
		FROM gatepass_items
		WHERE gatepass_id = $1
		ORDER BY id
	`

	rows, err := r.DB.Query(ctx, query, gatepassID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.GatepassItem
	for rows.Next() {
		var item models.GatepassItem
		if err := rows.Scan(&item.ID, &item.GatepassID, &item.ItemName, &item.Quantity, &item.Unit); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// ReplacePending rewrites the mutable fields and the full item set of a
// pending gatepass in one transaction. The UPDATE is guarded by
// status = 'pending'; zero rows affected means the edit lost a race against
// an approval (or the record is gone) and nothing is written.
func (r *GatepassRepository) ReplacePending(ctx context.Context, gp *models.Gatepass, items []models.GatepassItem) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin edit gatepass: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE gatepasses
		SET from_location = $1, to_location = $2, material_type = $3, purpose = $4,
		    requested_date = $5, requested_time = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7 AND status = 'pending'
	`

	tag, err := tx.Exec(ctx, query,
		gp.FromLocation, gp.ToLocation, gp.MaterialType, gp.Purpose,
		gp.RequestedDate, gp.RequestedTime, gp.ID,
	)
	if err != nil {
		return fmt.Errorf("update gatepass: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.zeroRowsError(ctx, gp.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM gatepass_items WHERE gatepass_id = $1`, gp.ID); err != nil {
		return fmt.Errorf("delete gatepass items: %w", err)
	}
	if err := insertItems(ctx, tx, gp.ID, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AdminApprove moves pending -> approved_by_admin via conditional update.
func (r *GatepassRepository) AdminApprove(ctx context.Context, id, adminID int, at time.Time) error {
	query := `
		UPDATE gatepasses
		SET status = 'approved_by_admin', admin_approved_by = $1, admin_approved_at = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status = 'pending'
	`

	return r.conditional(ctx, id, query, adminID, at, id)
}

// AdminDecline moves pending -> declined via conditional update.
func (r *GatepassRepository) AdminDecline(ctx context.Context, id, adminID int, at time.Time, reason string) error {
	query := `
		UPDATE gatepasses
		SET status = 'declined', declined_by = $1, declined_at = $2, decline_reason = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $4 AND status = 'pending'
	`

	return r.conditional(ctx, id, query, adminID, at, reason, id)
}

// SecurityVerify moves approved_by_admin/self_approved -> approved_by_security.
func (r *GatepassRepository) SecurityVerify(ctx context.Context, id, securityID int, at time.Time) error {
	query := `
		UPDATE gatepasses
		SET status = 'approved_by_security', security_approved_by = $1, security_approved_at = $2,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND status IN ('approved_by_admin', 'self_approved')
	`

	return r.conditional(ctx, id, query, securityID, at, id)
}

// SecurityDecline moves approved_by_admin/self_approved -> declined.
func (r *GatepassRepository) SecurityDecline(ctx context.Context, id, securityID int, at time.Time, reason string) error {
	query := `
		UPDATE gatepasses
		SET status = 'declined', declined_by = $1, declined_at = $2, decline_reason = $3,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $4 AND status IN ('approved_by_admin', 'self_approved')
	`

	return r.conditional(ctx, id, query, securityID, at, reason, id)
}

// conditional runs one guarded UPDATE. Zero rows affected is never silent
// success: it becomes ErrConflict for an existing record whose status moved
// on, or ErrNotFound when the id does not exist.
func (r *GatepassRepository) conditional(ctx context.Context, id int, query string, args ...interface{}) error {
	tag, err := r.DB.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.zeroRowsError(ctx, id)
	}
	return nil
}

func (r *GatepassRepository) zeroRowsError(ctx context.Context, id int) error {
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gatepasses WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return apperrors.ErrConflict
	}
	return apperrors.ErrNotFound
}

// ListByCreator retrieves one page of a user's own gatepasses, newest first.
// Bucket filters: "pending", "approved" (either approval stage), "declined".
func (r *GatepassRepository) ListByCreator(ctx context.Context, creatorID int, filter models.GatepassFilter) (*models.PagedGatepasses, error) {
	where := "WHERE created_by = $1"
	args := []interface{}{creatorID}

	switch filter.Bucket {
	case "pending":
		where += " AND status = 'pending'"
	case "approved":
		where += " AND status IN ('approved_by_admin', 'self_approved', 'approved_by_security')"
	case "declined":
		where += " AND status = 'declined'"
	}

	return r.page(ctx, where, args, filter.Page)
}

// ListAwaitingSecurity retrieves the security verification queue: every
// gatepass in approved_by_admin or self_approved, optionally narrowed by a
// text search and a requested_date range.
func (r *GatepassRepository) ListAwaitingSecurity(ctx context.Context, filter models.GatepassFilter) (*models.PagedGatepasses, error) {
	where := "WHERE status IN ('approved_by_admin', 'self_approved')"
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (gatepass_number ILIKE $%d OR from_location ILIKE $%d OR to_location ILIKE $%d OR material_type ILIKE $%d)", n, n, n, n)
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		where += fmt.Sprintf(" AND requested_date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		where += fmt.Sprintf(" AND requested_date <= $%d", len(args))
	}

	return r.page(ctx, where, args, filter.Page)
}

// ListAll retrieves one page across every status (admin view).
func (r *GatepassRepository) ListAll(ctx context.Context, filter models.GatepassFilter) (*models.PagedGatepasses, error) {
	where := ""
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = "WHERE gatepass_number ILIKE $1 OR from_location ILIKE $1 OR to_location ILIKE $1 OR material_type ILIKE $1"
	}

	return r.page(ctx, where, args, filter.Page)
}

func (r *GatepassRepository) page(ctx context.Context, where string, args []interface{}, pageNum int) (*models.PagedGatepasses, error) {
	if pageNum < 1 {
		pageNum = 1
	}

	var total int
	if err := r.DB.QueryRow(ctx, "SELECT COUNT(*) FROM gatepasses "+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT%s FROM gatepasses %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		gatepassColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, models.PageSize, (pageNum-1)*models.PageSize)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gatepasses := []models.Gatepass{}
	for rows.Next() {
		var gp models.Gatepass
		if err := rows.Scan(
			&gp.ID, &gp.GatepassNumber, &gp.FromLocation, &gp.ToLocation, &gp.MaterialType, &gp.Purpose,
			&gp.RequestedDate, &gp.RequestedTime, &gp.Status, &gp.CreatedBy,
			&gp.AdminApprovedBy, &gp.AdminApprovedAt, &gp.SecurityApprovedBy, &gp.SecurityApprovedAt,
			&gp.DeclinedBy, &gp.DeclinedAt, &gp.DeclineReason, &gp.CreatedAt, &gp.UpdatedAt,
		); err != nil {
			return nil, err
		}
		gatepasses = append(gatepasses, gp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PagedGatepasses{
		Gatepasses: gatepasses,
		Total:      total,
		Page:       pageNum,
		PageSize:   models.PageSize,
	}, nil
}

// CountByStatus returns the admin dashboard counters.
func (r *GatepassRepository) CountByStatus(ctx context.Context) (*models.StatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status IN ('approved_by_admin', 'self_approved')),
			COUNT(*) FILTER (WHERE status = 'approved_by_security'),
			COUNT(*) FILTER (WHERE status = 'declined'),
			COUNT(*)
		FROM gatepasses
	`

	counts := &models.StatusCounts{}
	err := r.DB.QueryRow(ctx, query).Scan(
		&counts.Pending, &counts.AwaitingSecurity, &counts.ApprovedBySecurity,
		&counts.Declined, &counts.Total,
	)
	if err != nil {
		return nil, err
	}

	return counts, nil
}
