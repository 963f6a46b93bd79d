package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/formgate/formgate/internal/adapters/sqlite/gormsqlite"
	"github.com/formgate/formgate/internal/core/domain"
)

type formSchemaModel struct {
	TenantID   string    `gorm:"column:tenant_id;primaryKey"`
	FieldsJSON string    `gorm:"column:fields_json;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (formSchemaModel) TableName() string {
	return "form_schemas"
}

type SchemaRepository struct {
	db *gormsqlite.DB
}

func NewSchemaRepository(db *gormsqlite.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

func (r *SchemaRepository) Create(ctx context.Context, schema domain.Schema) (domain.Schema, error) {
	fieldsJSON, err := json.Marshal(schema.Fields)
	if err != nil {
		return domain.Schema{}, fmt.Errorf("encode fields: %w", err)
	}

	now := time.Now().UTC()
	model := formSchemaModel{
		TenantID:   schema.TenantID,
		FieldsJSON: string(fieldsJSON),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var existing formSchemaModel
		err := tx.Where("tenant_id = ?", schema.TenantID).First(&existing).Error
		if err == nil {
			return domain.ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check existing schema: %w", err)
		}
		if err := tx.Create(&model).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Schema{}, err
	}
	return toSchemaDomain(model)
}

func (r *SchemaRepository) Update(ctx context.Context, schema domain.Schema) (domain.Schema, error) {
	fieldsJSON, err := json.Marshal(schema.Fields)
	if err != nil {
		return domain.Schema{}, fmt.Errorf("encode fields: %w", err)
	}

	var saved formSchemaModel
	err = r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&formSchemaModel{}).
			Where("tenant_id = ?", schema.TenantID).
			Updates(map[string]any{
				"fields_json": string(fieldsJSON),
				"updated_at":  time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("update schema: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Where("tenant_id = ?", schema.TenantID).First(&saved).Error
	})
	if err != nil {
		return domain.Schema{}, err
	}
	return toSchemaDomain(saved)
}

func (r *SchemaRepository) Delete(ctx context.Context, tenantID string) (bool, error) {
	var affected int64
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("tenant_id = ?", tenantID).Delete(&formSchemaModel{})
		if res.Error != nil {
			return fmt.Errorf("delete schema: %w", res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SchemaRepository) Get(ctx context.Context, tenantID string) (domain.Schema, error) {
	var model formSchemaModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("tenant_id = ?", tenantID).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Schema{}, domain.ErrNotFound
		}
		return domain.Schema{}, fmt.Errorf("get schema: %w", err)
	}
	return toSchemaDomain(model)
}

func (r *SchemaRepository) List(ctx context.Context) ([]domain.Schema, error) {
	var models []formSchemaModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Order("tenant_id ASC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	schemas := make([]domain.Schema, 0, len(models))
	for _, model := range models {
		schema, err := toSchemaDomain(model)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	return schemas, nil
}

func toSchemaDomain(model formSchemaModel) (domain.Schema, error) {
	var fields []domain.FieldDefinition
	if err := json.Unmarshal([]byte(model.FieldsJSON), &fields); err != nil {
		return domain.Schema{}, fmt.Errorf("decode fields for tenant %s: %w", model.TenantID, err)
	}
	return domain.Schema{
		TenantID:  model.TenantID,
		Fields:    fields,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

// isUniqueViolation reports whether err is sqlite's duplicate-key failure.
// The modernc driver does not expose a typed error for it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
