package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification is a persisted operational event shown in the dashboard feed.
// BranchID 0 marks a society-wide notification.
type Notification struct {
	ID         int64     `json:"id"`
	BranchID   int64     `json:"branchId"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Notifications provides access to the notifications table.
type Notifications struct {
	Pool *pgxpool.Pool
}

const notificationColumns = `id, branch_id, type, message, status, occurred_at, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.BranchID, &n.Type, &n.Message, &n.Status, &n.OccurredAt, &n.CreatedAt)
	return n, err
}

// Insert stores a notification.
func (r Notifications) Insert(ctx context.Context, branchID int64, kind, message string, occurredAt time.Time) (Notification, error) {
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO notifications (branch_id, type, message, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+notificationColumns,
		branchID, kind, message, occurredAt)
	return scanNotification(row)
}

// ListRecent returns a page of the newest notifications plus the unpaged
// total, branch-wide ones included. branchID 0 lists across all branches.
func (r Notifications) ListRecent(ctx context.Context, branchID int64, limit, offset int) ([]Notification, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int64
	err := r.Pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE ($1::bigint = 0 OR branch_id = $1 OR branch_id = 0)`,
		branchID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE ($1::bigint = 0 OR branch_id = $1 OR branch_id = 0)
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		branchID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// MarkRead flips a notification to read.
func (r Notifications) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE notifications SET status = 'read' WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkAllRead flips every unread notification for a branch (0 = all).
func (r Notifications) MarkAllRead(ctx context.Context, branchID int64) (int64, error) {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE notifications SET status = 'read'
		WHERE status = 'unread' AND ($1::bigint = 0 OR branch_id = $1)`,
		branchID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
