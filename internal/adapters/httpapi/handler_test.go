package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/formgate/formgate/internal/core/domain"
	"github.com/formgate/formgate/internal/core/ports"
	"github.com/formgate/formgate/internal/core/usecase"
)

type memSchemaRepo struct {
	schemas map[string]domain.Schema
}

func (r *memSchemaRepo) Create(_ context.Context, schema domain.Schema) (domain.Schema, error) {
	if _, ok := r.schemas[schema.TenantID]; ok {
		return domain.Schema{}, domain.ErrConflict
	}
	r.schemas[schema.TenantID] = schema
	return schema, nil
}

func (r *memSchemaRepo) Update(_ context.Context, schema domain.Schema) (domain.Schema, error) {
	if _, ok := r.schemas[schema.TenantID]; !ok {
		return domain.Schema{}, domain.ErrNotFound
	}
	r.schemas[schema.TenantID] = schema
	return schema, nil
}

func (r *memSchemaRepo) Delete(_ context.Context, tenantID string) (bool, error) {
	if _, ok := r.schemas[tenantID]; !ok {
		return false, nil
	}
	delete(r.schemas, tenantID)
	return true, nil
}

func (r *memSchemaRepo) Get(_ context.Context, tenantID string) (domain.Schema, error) {
	s, ok := r.schemas[tenantID]
	if !ok {
		return domain.Schema{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *memSchemaRepo) List(_ context.Context) ([]domain.Schema, error) {
	out := make([]domain.Schema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	return out, nil
}

type memTenantRepo struct {
	tenants map[string]domain.Tenant
}

func (r *memTenantRepo) Create(_ context.Context, tenant domain.Tenant) (domain.Tenant, error) {
	if _, ok := r.tenants[tenant.TenantID]; ok {
		return domain.Tenant{}, domain.ErrConflict
	}
	r.tenants[tenant.TenantID] = tenant
	return tenant, nil
}

func (r *memTenantRepo) Get(_ context.Context, tenantID string) (domain.Tenant, error) {
	t, ok := r.tenants[tenantID]
	if !ok {
		return domain.Tenant{}, domain.ErrNotFound
	}
	return t, nil
}

func (r *memTenantRepo) List(_ context.Context) ([]domain.Tenant, error) {
	out := make([]domain.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	return out, nil
}

type memAuditRepo struct {
	entries []domain.AuditEntry
}

func (r *memAuditRepo) Append(_ context.Context, entry domain.AuditEntry) error {
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memAuditRepo) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	out := make([]domain.AuditEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if filter.TenantID != "" && e.TenantID != filter.TenantID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type memUserStore struct {
	users []domain.RegisteredUser
}

func (s *memUserStore) Insert(_ context.Context, user domain.RegisteredUser) (domain.RegisteredUser, error) {
	// Prepend so lists come back newest first, like the real store.
	s.users = append([]domain.RegisteredUser{user}, s.users...)
	return user, nil
}

func (s *memUserStore) List(_ context.Context, page, pageSize int) ([]domain.RegisteredUser, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	start := (page - 1) * pageSize
	if start > len(s.users) {
		start = len(s.users)
	}
	end := start + pageSize
	if end > len(s.users) {
		end = len(s.users)
	}
	return s.users[start:end], int64(len(s.users)), nil
}

func (s *memUserStore) GetByID(_ context.Context, id string) (domain.RegisteredUser, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.RegisteredUser{}, domain.ErrNotFound
}

type memRouter struct {
	stores map[string]*memUserStore
}

func (r *memRouter) Resolve(_ context.Context, tenantID string) (ports.UserStore, error) {
	key := domain.NormalizeTenantID(tenantID)
	if key == "" {
		return nil, domain.ErrInvalidTenantID
	}
	store, ok := r.stores[key]
	if !ok {
		store = &memUserStore{}
		r.stores[key] = store
	}
	return store, nil
}

type testEnv struct {
	handler http.Handler
	schemas *memSchemaRepo
	tenants *memTenantRepo
	audit   *memAuditRepo
	router  *memRouter
}

func newTestEnv() *testEnv {
	schemas := &memSchemaRepo{schemas: make(map[string]domain.Schema)}
	tenants := &memTenantRepo{tenants: make(map[string]domain.Tenant)}
	audit := &memAuditRepo{}
	router := &memRouter{stores: make(map[string]*memUserStore)}

	registry := usecase.NewRegistryService(schemas, tenants, audit, nil)
	registration := usecase.NewRegistrationService(schemas, router, usecase.NewValidator(), nil)
	auditSvc := usecase.NewAuditService(audit)

	return &testEnv{
		handler: NewHandler(registry, registration, auditSvc).Router(),
		schemas: schemas,
		tenants: tenants,
		audit:   audit,
		router:  router,
	}
}

func (e *testEnv) seedSchema(tenantID string) {
	e.schemas.schemas[tenantID] = domain.Schema{TenantID: tenantID, Fields: []domain.FieldDefinition{
		{ID: "name", Label: "Name", Type: domain.FieldText, Validation: domain.FieldValidation{Required: true}},
		{ID: "email", Label: "Email", Type: domain.FieldEmail},
	}}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func TestGetFieldsReturnsSchema(t *testing.T) {
	env := newTestEnv()
	env.seedSchema("tenant-a")

	rec := env.do(t, http.MethodGet, "/fields/tenant-a", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Fatalf("expected success envelope: %s", rec.Body.String())
	}

	var data struct {
		TenantID string                   `json:"tenantId"`
		Fields   []domain.FieldDefinition `json:"fields"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.TenantID != "tenant-a" || len(data.Fields) != 2 {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestGetFieldsUnknownTenant(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/fields/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); resp.Success {
		t.Fatal("expected failure envelope")
	}
}

func TestRegisterSuccess(t *testing.T) {
	env := newTestEnv()
	env.seedSchema("tenant-a")

	rec := env.do(t, http.MethodPost, "/register/tenant-a", `{"name":"Ada","email":"ada@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Fatalf("expected success envelope: %s", rec.Body.String())
	}

	var data struct {
		UserID   string `json:"userId"`
		TenantID string `json:"tenantId"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.UserID == "" || data.TenantID != "tenant-a" {
		t.Fatalf("unexpected data: %+v", data)
	}

	store := env.router.stores["tenanta"]
	if store == nil || len(store.users) != 1 {
		t.Fatal("registration not persisted")
	}
}

func TestRegisterValidationFailure(t *testing.T) {
	env := newTestEnv()
	env.seedSchema("tenant-a")

	rec := env.do(t, http.MethodPost, "/register/tenant-a", `{"email":"not-an-email"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	if resp.Success {
		t.Fatal("expected failure envelope")
	}
	if resp.Message != "validation failed" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if resp.Errors["name"] != "Name is required" {
		t.Fatalf("unexpected name error %q", resp.Errors["name"])
	}
	if resp.Errors["email"] != "Email must be a valid email address" {
		t.Fatalf("unexpected email error %q", resp.Errors["email"])
	}
}

func TestRegisterRejectsNonScalarValues(t *testing.T) {
	env := newTestEnv()
	env.seedSchema("tenant-a")

	for _, body := range []string{`{"name":{"first":"Ada"}}`, `{"name":[1,2]}`, `{"name":null}`, `not json`} {
		rec := env.do(t, http.MethodPost, "/register/tenant-a", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestListUsersPagination(t *testing.T) {
	env := newTestEnv()
	env.seedSchema("tenant-a")

	for i := 1; i <= 25; i++ {
		body := fmt.Sprintf(`{"name":"User %02d"}`, i)
		if rec := env.do(t, http.MethodPost, "/register/tenant-a", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := env.do(t, http.MethodGet, "/register/tenant-a/users?page=2&limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)

	var data struct {
		Users      []json.RawMessage `json:"users"`
		Pagination struct {
			Page       int   `json:"page"`
			Limit      int   `json:"limit"`
			Total      int64 `json:"total"`
			TotalPages int   `json:"totalPages"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Users) != 10 {
		t.Fatalf("expected 10 users, got %d", len(data.Users))
	}
	p := data.Pagination
	if p.Page != 2 || p.Limit != 10 || p.Total != 25 || p.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
}

func TestListUsersDefaultsBadPagination(t *testing.T) {
	env := newTestEnv()
	env.seedSchema("tenant-a")

	rec := env.do(t, http.MethodGet, "/register/tenant-a/users?page=zero&limit=-4", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)

	var data struct {
		Pagination struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Pagination.Page != 1 || data.Pagination.Limit != 10 {
		t.Fatalf("unexpected pagination defaults: %+v", data.Pagination)
	}
}

func TestGetUserEndpoint(t *testing.T) {
	env := newTestEnv()
	env.seedSchema("tenant-a")

	rec := env.do(t, http.MethodPost, "/register/tenant-a", `{"name":"Ada"}`)
	resp := decodeEnvelope(t, rec)
	var created struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	rec = env.do(t, http.MethodGet, "/register/tenant-a/users/"+created.UserID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/register/tenant-a/users/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCreateSchemaEndpoint(t *testing.T) {
	env := newTestEnv()

	body := `{"tenantId":"tenant-a","fields":[{"id":"name","label":"Name","type":"text","validation":{"required":true}}]}`
	rec := env.do(t, http.MethodPost, "/admin/schemas", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate create conflicts.
	rec = env.do(t, http.MethodPost, "/admin/schemas", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	// Invalid field list.
	rec = env.do(t, http.MethodPost, "/admin/schemas", `{"tenantId":"tenant-b","fields":[{"id":"x","label":"X","type":"checkbox"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	// Unknown top-level key.
	rec = env.do(t, http.MethodPost, "/admin/schemas", `{"tenantId":"tenant-c","fields":[],"bogus":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown key, got %d", rec.Code)
	}
}

func TestUpdateAndDeleteSchemaEndpoints(t *testing.T) {
	env := newTestEnv()
	env.seedSchema("tenant-a")

	rec := env.do(t, http.MethodPut, "/admin/schemas/tenant-a", `{"fields":[{"id":"company","label":"Company","type":"text"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := env.schemas.schemas["tenant-a"]; len(got.Fields) != 1 || got.Fields[0].ID != "company" {
		t.Fatalf("update not applied: %+v", got.Fields)
	}

	rec = env.do(t, http.MethodPut, "/admin/schemas/ghost", `{"fields":[{"id":"a","label":"A","type":"text"}]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/admin/schemas/tenant-a", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/admin/schemas/tenant-a", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for second delete, got %d", rec.Code)
	}
}

func TestCreateTenantEndpoint(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/admin/tenants", `{"tenantId":"tenant-a","name":"Acme"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	var data struct {
		IsActive bool `json:"isActive"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data.IsActive {
		t.Fatal("isActive must default to true")
	}

	rec = env.do(t, http.MethodPost, "/admin/tenants", `{"tenantId":"tenant-b","name":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", rec.Code)
	}
}

func TestAuditEndpointRecordsActor(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodPost, "/admin/schemas", strings.NewReader(
		`{"tenantId":"tenant-a","fields":[{"id":"name","label":"Name","type":"text"}]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Actor", "alice")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create schema: %d %s", rec.Code, rec.Body.String())
	}

	listRec := env.do(t, http.MethodGet, "/admin/audit?tenant=tenant-a", "")
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listRec.Code)
	}
	resp := decodeEnvelope(t, listRec)
	var data struct {
		Entries []domain.AuditEntry `json:"entries"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.Entries) != 1 || data.Entries[0].Actor != "alice" || data.Entries[0].Action != "schema.created" {
		t.Fatalf("unexpected audit entries: %+v", data.Entries)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); !resp.Success {
		t.Fatal("expected success envelope")
	}
}
