package repositories

import (
	"context"
	"fmt"

	"gatepass-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	DB *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, event_type, gatepass_id, gatepass_number, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.DB.QueryRow(ctx, query,
		n.UserID, n.EventType, n.GatepassID, n.GatepassNumber, n.Message,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID, page int) ([]models.Notification, int, error) {
	if page < 1 {
		page = 1
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, user_id, event_type, gatepass_id, gatepass_number, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.DB.Query(ctx, query, userID, models.PageSize, (page-1)*models.PageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.EventType, &n.GatepassID, &n.GatepassNumber, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, n)
	}

	return notifications, total, rows.Err()
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID,
	).Scan(&count)
	return count, err
}

// MarkRead flags one notification read. It is scoped to the owner so a user
// cannot touch another user's rows.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %d not found for user %d", id, userID)
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID,
	)
	return err
}

// LogMessage records one outbound delivery attempt (any channel).
func (r *NotificationRepository) LogMessage(ctx context.Context, m *models.MessageLog) error {
	query := `
		INSERT INTO message_logs (user_id, phone, channel, event_type, message, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.DB.QueryRow(ctx, query,
		m.UserID, m.Phone, m.Channel, m.EventType, m.Message, m.Status, m.ErrorMessage,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message log: %w", err)
	}

	return nil
}
