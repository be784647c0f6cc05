package store

import (
	"context"
	"fmt"
	"time"

	"github.com/incridea-nmamit/incridea-server/internal/models"
)

// LogAction appends an audit row. actorID may be nil for system actions.
func (t *Tx) LogAction(ctx context.Context, actorID *int64, action, details string) error {
	_, err := t.exec(ctx, t.sb.Insert("audit_logs").
		Columns("created_at", "actor_id", "action", "details").
		Values(toMillis(time.Now()), actorID, action, details))
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (t *Tx) AuditLogs(ctx context.Context, limit uint64) ([]models.AuditEntry, error) {
	rows, err := t.query(ctx, t.sb.Select("l.id", "l.created_at", "COALESCE(u.name, '(deleted)')", "l.action", "l.details").
		From("audit_logs l").
		LeftJoin("users u ON u.id = l.actor_id").
		OrderBy("l.id DESC").
		Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	out := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var createdMs int64
		if err := rows.Scan(&e.ID, &createdMs, &e.Actor, &e.Action, &e.Details); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		e.CreatedAt = fromMillis(createdMs)
		out = append(out, e)
	}
	return out, rows.Err()
}
