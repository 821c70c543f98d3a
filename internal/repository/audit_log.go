package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AuditLog is one append-only audit record.
type AuditLog struct {
	ID           string
	Action       string
	ResourceType string
	ResourceID   string
	Actor        string
	Details      map[string]interface{}
	CreatedAt    time.Time
}

// AuditLogRepository appends and reads audit records. There is no update or delete.
type AuditLogRepository struct {
	db DBTX
}

// NewAuditLogRepository creates an AuditLogRepository.
func NewAuditLogRepository(db DBTX) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Insert appends rec.
func (r *AuditLogRepository) Insert(ctx context.Context, rec AuditLog) error {
	var details []byte
	if len(rec.Details) > 0 {
		b, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = b
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, action, resource_type, resource_id, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Action, rec.ResourceType, rec.ResourceID, rec.Actor, details, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log %s: %w", rec.Action, err)
	}
	return nil
}

// ListForResource returns the records for one resource, oldest first.
func (r *AuditLogRepository) ListForResource(ctx context.Context, resourceType, resourceID string) ([]AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, action, resource_type, resource_id, actor, details, created_at
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at, id`,
		resourceType, resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var out []AuditLog
	for rows.Next() {
		var (
			rec     AuditLog
			details []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.ResourceType, &rec.ResourceID, &rec.Actor, &details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rec.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
