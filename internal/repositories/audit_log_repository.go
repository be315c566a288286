package repositories

import (
	"context"
	"fmt"

	"gatepass-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogRepository is append-only. There is deliberately no update or
// delete method.
type AuditLogRepository struct {
	DB *pgxpool.Pool
}

func NewAuditLogRepository(db *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{DB: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (actor_id, action_code, gatepass_id, detail, ip_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.DB.QueryRow(ctx, query,
		entry.ActorID, entry.ActionCode, entry.GatepassID, entry.Detail, entry.IPAddress,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	return nil
}

// List returns one page of audit entries, newest first, with the total count.
func (r *AuditLogRepository) List(ctx context.Context, page int) ([]models.AuditLogEntry, int, error) {
	if page < 1 {
		page = 1
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, actor_id, action_code, gatepass_id, detail, ip_address, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.DB.Query(ctx, query, models.PageSize, (page-1)*models.PageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []models.AuditLogEntry{}
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActionCode, &e.GatepassID, &e.Detail, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}

	return entries, total, rows.Err()
}

// ListByGatepass returns the full trail of one gatepass, oldest first.
func (r *AuditLogRepository) ListByGatepass(ctx context.Context, gatepassID int) ([]models.AuditLogEntry, error) {
	query := `
		SELECT id, actor_id, action_code, gatepass_id, detail, ip_address, created_at
		FROM audit_logs
		WHERE gatepass_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.DB.Query(ctx, query, gatepassID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditLogEntry{}
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActionCode, &e.GatepassID, &e.Detail, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
