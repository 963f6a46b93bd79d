package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/formgate/formgate/internal/core/domain"
	"github.com/formgate/formgate/internal/core/ports"
)

// fieldListMetaSchema is the schema-of-the-schema: every admin-authored field
// list must conform to it before it is persisted. A field's validation.pattern
// is deliberately not compile-checked here; a malformed pattern degrades to
// "no constraint" at validation time instead of making the schema unwritable.
const fieldListMetaSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "label", "type"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "label": {"type": "string", "minLength": 1},
      "type": {"enum": ["text", "email", "phone", "number", "textarea", "select"]},
      "placeholder": {"type": "string"},
      "options": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["value"],
          "properties": {
            "label": {"type": "string"},
            "value": {"type": "string"}
          },
          "additionalProperties": false
        }
      },
      "validation": {
        "type": "object",
        "properties": {
          "required": {"type": "boolean"},
          "minLength": {"type": "integer", "minimum": 0},
          "maxLength": {"type": "integer", "minimum": 0},
          "pattern": {"type": "string"}
        },
        "additionalProperties": false
      },
      "errorMessage": {"type": "string"}
    },
    "additionalProperties": false
  }
}`

var compiledFieldListMeta = santhosh.MustCompileString("fields.json", fieldListMetaSchema)

// RegistryService manages schema and tenant metadata records in the shared
// store. Registry operations are stateless request/response CRUD; the
// registry also enforces what storage does not, most importantly field-id
// uniqueness within a schema.
type RegistryService struct {
	schemas ports.SchemaRepository
	tenants ports.TenantRepository
	audit   ports.AuditRepository
	outbox  ports.OutboxRepository
}

func NewRegistryService(schemas ports.SchemaRepository, tenants ports.TenantRepository, audit ports.AuditRepository, outbox ports.OutboxRepository) *RegistryService {
	return &RegistryService{schemas: schemas, tenants: tenants, audit: audit, outbox: outbox}
}

func (s *RegistryService) CreateSchema(ctx context.Context, tenantID string, fields []domain.FieldDefinition, actor string) (domain.Schema, error) {
	if err := validateTenantID(tenantID); err != nil {
		return domain.Schema{}, err
	}
	if err := validateFieldList(fields); err != nil {
		return domain.Schema{}, err
	}

	created, err := s.schemas.Create(ctx, domain.Schema{TenantID: tenantID, Fields: fields})
	if err != nil {
		return domain.Schema{}, err
	}

	s.recordAdminChange(ctx, tenantID, "schema.created", actor, nil, created.Fields)
	return created, nil
}

func (s *RegistryService) UpdateSchema(ctx context.Context, tenantID string, fields []domain.FieldDefinition, actor string) (domain.Schema, error) {
	if err := validateTenantID(tenantID); err != nil {
		return domain.Schema{}, err
	}
	if err := validateFieldList(fields); err != nil {
		return domain.Schema{}, err
	}

	before, err := s.schemas.Get(ctx, tenantID)
	if err != nil {
		return domain.Schema{}, err
	}

	// Full replacement: the new field list overwrites the old one entirely.
	updated, err := s.schemas.Update(ctx, domain.Schema{TenantID: tenantID, Fields: fields})
	if err != nil {
		return domain.Schema{}, err
	}

	s.recordAdminChange(ctx, tenantID, "schema.updated", actor, before.Fields, updated.Fields)
	return updated, nil
}

func (s *RegistryService) DeleteSchema(ctx context.Context, tenantID string, actor string) error {
	if err := validateTenantID(tenantID); err != nil {
		return err
	}

	before, err := s.schemas.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	deleted, err := s.schemas.Delete(ctx, tenantID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	s.recordAdminChange(ctx, tenantID, "schema.deleted", actor, before.Fields, nil)
	return nil
}

func (s *RegistryService) GetSchema(ctx context.Context, tenantID string) (domain.Schema, error) {
	if err := validateTenantID(tenantID); err != nil {
		return domain.Schema{}, err
	}
	return s.schemas.Get(ctx, tenantID)
}

// ListAll returns every tenant and every schema in the shared store. Tenants
// without a schema are legitimate ("no schema configured"); the caller pairs
// the two lists by tenant id.
func (s *RegistryService) ListAll(ctx context.Context) ([]domain.Tenant, []domain.Schema, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	schemas, err := s.schemas.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tenants, schemas, nil
}

func (s *RegistryService) CreateTenant(ctx context.Context, tenant domain.Tenant, actor string) (domain.Tenant, error) {
	if err := validateTenantID(tenant.TenantID); err != nil {
		return domain.Tenant{}, err
	}
	if strings.TrimSpace(tenant.Name) == "" {
		return domain.Tenant{}, &domain.SchemaDefinitionError{Reasons: []string{"tenant name must not be empty"}}
	}

	created, err := s.tenants.Create(ctx, tenant)
	if err != nil {
		return domain.Tenant{}, err
	}

	s.recordAdminChange(ctx, created.TenantID, "tenant.created", actor, nil, created)
	return created, nil
}

func (s *RegistryService) GetTenant(ctx context.Context, tenantID string) (domain.Tenant, error) {
	if err := validateTenantID(tenantID); err != nil {
		return domain.Tenant{}, err
	}
	return s.tenants.Get(ctx, tenantID)
}

// recordAdminChange appends an audit row and enqueues an admin outbox event.
// Neither failure aborts the admin operation itself; both are logged by the
// called layer.
func (s *RegistryService) recordAdminChange(ctx context.Context, tenantID, action, actor string, before, after any) {
	entry := domain.AuditEntry{
		TenantID: tenantID,
		Action:   action,
		Actor:    actor,
	}
	if before != nil {
		entry.BeforeJSON, _ = json.Marshal(before)
	}
	if after != nil {
		entry.AfterJSON, _ = json.Marshal(after)
	}
	_ = s.audit.Append(ctx, entry)

	enqueueEvent(ctx, s.outbox, domain.TopicAdmin, action, tenantID, map[string]any{
		"action": action,
		"actor":  actor,
	})
}

func validateTenantID(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return domain.ErrInvalidTenantID
	}
	if domain.NormalizeTenantID(tenantID) == "" {
		return fmt.Errorf("%w: no alphanumeric characters in %q", domain.ErrInvalidTenantID, tenantID)
	}
	return nil
}

// validateFieldList runs the embedded meta-schema over the admin-authored
// field list and rejects duplicate field ids, which storage does not enforce.
func validateFieldList(fields []domain.FieldDefinition) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode field list: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode field list: %w", err)
	}

	var reasons []string
	if err := compiledFieldListMeta.Validate(doc); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			for _, cause := range flattenCauses(ve) {
				reasons = append(reasons, cause)
			}
		} else {
			reasons = append(reasons, err.Error())
		}
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.ID] {
			reasons = append(reasons, fmt.Sprintf("duplicate field id %q", f.ID))
		}
		seen[f.ID] = true
	}

	if len(fields) == 0 {
		reasons = append(reasons, "schema must define at least one field")
	}

	if len(reasons) > 0 {
		return &domain.SchemaDefinitionError{Reasons: reasons}
	}
	return nil
}

func flattenCauses(ve *santhosh.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{fmt.Sprintf("%s: %s", loc, ve.Message)}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, flattenCauses(cause)...)
	}
	return out
}
