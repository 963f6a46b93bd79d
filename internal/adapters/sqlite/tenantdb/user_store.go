package tenantdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/formgate/formgate/internal/adapters/sqlite/gormsqlite"
	"github.com/formgate/formgate/internal/core/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

type registeredUserModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	TenantID   string    `gorm:"column:tenant_id;not null"`
	FieldsJSON string    `gorm:"column:fields_json;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (registeredUserModel) TableName() string {
	return "registered_users"
}

// UserStore executes record operations against one tenant's database file.
// It never sees another tenant's data: isolation comes from the file, not
// from query filters.
type UserStore struct {
	db *gormsqlite.DB
}

func NewUserStore(db *gormsqlite.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Insert(ctx context.Context, user domain.RegisteredUser) (domain.RegisteredUser, error) {
	fieldsJSON, err := json.Marshal(user.Fields)
	if err != nil {
		return domain.RegisteredUser{}, fmt.Errorf("encode fields: %w", err)
	}

	now := time.Now().UTC()
	model := registeredUserModel{
		ID:         user.ID,
		TenantID:   user.TenantID,
		FieldsJSON: string(fieldsJSON),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.RegisteredUser{}, fmt.Errorf("insert user: %w", err)
	}
	return toUserDomain(model)
}

// List returns one page of users, newest first, plus the total count. Absent
// or invalid page/pageSize fall back to 1/10.
func (s *UserStore) List(ctx context.Context, page, pageSize int) ([]domain.RegisteredUser, int64, error) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	offset := (page - 1) * pageSize

	var (
		rows  []registeredUserModel
		total int64
	)
	err := s.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&registeredUserModel{}).Count(&total).Error; err != nil {
			return err
		}
		return tx.Order("created_at DESC, id DESC").
			Offset(offset).
			Limit(pageSize).
			Find(&rows).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.RegisteredUser, 0, len(rows))
	for _, row := range rows {
		user, err := toUserDomain(row)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (domain.RegisteredUser, error) {
	var model registeredUserModel
	err := s.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RegisteredUser{}, domain.ErrNotFound
		}
		return domain.RegisteredUser{}, fmt.Errorf("get user: %w", err)
	}
	return toUserDomain(model)
}

func toUserDomain(model registeredUserModel) (domain.RegisteredUser, error) {
	var fields map[string]domain.FieldValue
	if err := json.Unmarshal([]byte(model.FieldsJSON), &fields); err != nil {
		return domain.RegisteredUser{}, fmt.Errorf("decode fields for user %s: %w", model.ID, err)
	}
	return domain.RegisteredUser{
		ID:        model.ID,
		TenantID:  model.TenantID,
		Fields:    fields,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}
