package repository

import (
	"context"
	"encoding/json"

	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

type auditRepository struct {
	db sqlx.ExtContext
}

type auditRow struct {
	domain.AuditEntry
	MetadataJSON types.JSONText `db:"metadata"`
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_audit_log (id, entity_type, entity_id, action, old_values, new_values, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		nullJSON(entry.OldValues),
		nullJSON(entry.NewValues),
		types.JSONText(metadata),
		entry.CreatedAt,
	)

	return translateError(err)
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, action, old_values, new_values, metadata, created_at
		FROM ledger_audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at
	`

	var rows []auditRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, entityType, entityID); err != nil {
		return nil, translateError(err)
	}

	entries := make([]*domain.AuditEntry, 0, len(rows))
	for i := range rows {
		entry := rows[i].AuditEntry
		if len(rows[i].MetadataJSON) > 0 {
			if err := rows[i].MetadataJSON.Unmarshal(&entry.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// nullJSON keeps absent snapshots NULL instead of writing an empty document.
func nullJSON(j types.JSONText) any {
	if len(j) == 0 {
		return nil
	}
	return j
}
