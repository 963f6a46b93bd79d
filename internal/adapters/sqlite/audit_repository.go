package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/formgate/formgate/internal/adapters/sqlite/gormsqlite"
	"github.com/formgate/formgate/internal/core/domain"
)

type auditEntryModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantID   string    `gorm:"column:tenant_id;not null"`
	Action     string    `gorm:"column:action;not null"`
	Actor      string    `gorm:"column:actor;not null"`
	BeforeJSON string    `gorm:"column:before_json;not null"`
	AfterJSON  string    `gorm:"column:after_json;not null"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null"`
}

func (auditEntryModel) TableName() string {
	return "admin_audit"
}

type AuditRepository struct {
	db *gormsqlite.DB
}

func NewAuditRepository(db *gormsqlite.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	model := auditEntryModel{
		TenantID:   entry.TenantID,
		Action:     entry.Action,
		Actor:      entry.Actor,
		BeforeJSON: string(entry.BeforeJSON),
		AfterJSON:  string(entry.AfterJSON),
		OccurredAt: entry.OccurredAt,
	}
	if model.OccurredAt.IsZero() {
		model.OccurredAt = time.Now().UTC()
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	var rows []auditEntryModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&auditEntryModel{})
		if filter.TenantID != "" {
			query = query.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Action != "" {
			query = query.Where("action = ?", filter.Action)
		}
		if filter.AfterID > 0 {
			query = query.Where("id < ?", filter.AfterID)
		}
		return query.Order("id DESC").Limit(filter.Limit).Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	result := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := domain.AuditEntry{
			ID:         row.ID,
			TenantID:   row.TenantID,
			Action:     row.Action,
			Actor:      row.Actor,
			OccurredAt: row.OccurredAt,
		}
		if row.BeforeJSON != "" {
			entry.BeforeJSON = json.RawMessage(row.BeforeJSON)
		}
		if row.AfterJSON != "" {
			entry.AfterJSON = json.RawMessage(row.AfterJSON)
		}
		result = append(result, entry)
	}
	return result, nil
}
