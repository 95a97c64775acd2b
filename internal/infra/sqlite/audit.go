package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Audit Operations ───────────────────────────────────────────────────────

// InsertAuditLog appends an audit record. Metadata is stored as a JSON object.
func (q queries) InsertAuditLog(ctx context.Context, l domain.AuditLog) error {
	meta, err := json.Marshal(l.Metadata)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	_, err = q.c.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, actor_role, action, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, l.ID.String(), nullUUID(l.ActorID), string(l.ActorRole), string(l.Action), string(meta), ts(l.CreatedAt))
	return mapErr("insert audit log", err)
}

// ListAuditLogs returns the most recent audit records, newest first.
func (q queries) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	rows, err := q.c.QueryContext(ctx, `
		SELECT id, actor_id, actor_role, action, metadata, created_at FROM audit_logs
		ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, mapErr("list audit logs", err)
	}
	defer rows.Close()

	var out []domain.AuditLog
	for rows.Next() {
		var (
			l                           domain.AuditLog
			actor                       sql.NullString
			role, action, meta, created string
		)
		if err := rows.Scan(&l.ID, &actor, &role, &action, &meta, &created); err != nil {
			return nil, err
		}
		if actor.Valid {
			id, err := uuid.Parse(actor.String)
			if err != nil {
				return nil, fmt.Errorf("list audit logs: actor id: %w", err)
			}
			l.ActorID = &id
		}
		if err := json.Unmarshal([]byte(meta), &l.Metadata); err != nil {
			return nil, fmt.Errorf("list audit logs: metadata: %w", err)
		}
		l.ActorRole = domain.Role(role)
		l.Action = domain.AuditAction(action)
		l.CreatedAt = parseTS(created)
		out = append(out, l)
	}
	return out, rows.Err()
}
