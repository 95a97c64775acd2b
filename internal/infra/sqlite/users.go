package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

// ─── User Operations ────────────────────────────────────────────────────────

// InsertUser stores a new user. A duplicate email returns ErrConflict.
func (q queries) InsertUser(ctx context.Context, u domain.User) error {
	_, err := q.c.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID.String(), u.Name, u.Email, string(u.Role), ts(u.CreatedAt))
	return mapErr("insert user", err)
}

// GetUser retrieves a user by ID.
func (q queries) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var u domain.User
	var role, created string
	err := q.c.QueryRowContext(ctx, `
		SELECT id, name, email, role, created_at FROM users WHERE id = ?
	`, id.String()).Scan(&u.ID, &u.Name, &u.Email, &role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, notFound("get user", "user", id)
	}
	if err != nil {
		return domain.User{}, mapErr("get user", err)
	}
	u.Role = domain.Role(role)
	u.CreatedAt = parseTS(created)
	return u, nil
}

// ─── Notification Operations ────────────────────────────────────────────────

// InsertNotification stores an in-app notification.
func (q queries) InsertNotification(ctx context.Context, n domain.Notification) error {
	_, err := q.c.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.ID.String(), n.UserID.String(), n.Title, n.Message, ts(n.CreatedAt))
	return mapErr("insert notification", err)
}

// ListNotifications returns a user's notifications, newest first.
func (q queries) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	rows, err := q.c.QueryContext(ctx, `
		SELECT id, user_id, title, message, created_at FROM notifications
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
	`, userID.String(), limit)
	if err != nil {
		return nil, mapErr("list notifications", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var created string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &created); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTS(created)
		out = append(out, n)
	}
	return out, rows.Err()
}
