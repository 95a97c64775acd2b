package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Audit ──────────────────────────────────────────────────────────────────

func (q queries) InsertAuditLog(ctx context.Context, l domain.AuditLog) error {
	meta, err := json.Marshal(l.Metadata)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	_, err = q.c.Exec(ctx, `
		INSERT INTO audit_logs (id, actor_id, actor_role, action, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, l.ID, l.ActorID, string(l.ActorRole), string(l.Action), meta, l.CreatedAt)
	return mapErr("insert audit log", err)
}

func (q queries) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	rows, err := q.c.Query(ctx, `
		SELECT id, actor_id, actor_role, action, metadata, created_at FROM audit_logs
		ORDER BY seq DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, mapErr("list audit logs", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.AuditLog, error) {
		var (
			l            domain.AuditLog
			role, action string
			meta         []byte
		)
		if err := r.Scan(&l.ID, &l.ActorID, &role, &action, &meta, &l.CreatedAt); err != nil {
			return l, err
		}
		l.ActorRole = domain.Role(role)
		l.Action = domain.AuditAction(action)
		return l, json.Unmarshal(meta, &l.Metadata)
	})
	return out, mapErr("list audit logs", err)
}
