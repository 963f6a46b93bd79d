package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/formgate/formgate/internal/core/domain"
	"github.com/formgate/formgate/internal/core/usecase"
	"github.com/formgate/formgate/internal/metrics"
)

const (
	timeFormat      = "2006-01-02T15:04:05.999999999Z07:00"
	maxJSONBodySize = 1 << 20
)

type Handler struct {
	registry     *usecase.RegistryService
	registration *usecase.RegistrationService
	audit        *usecase.AuditService
}

func NewHandler(registry *usecase.RegistryService, registration *usecase.RegistrationService, audit *usecase.AuditService) *Handler {
	return &Handler{registry: registry, registration: registration, audit: audit}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/fields/{tenantID}", h.getFields)
	r.Post("/register/{tenantID}", h.register)
	r.Get("/register/{tenantID}/users", h.listUsers)
	r.Get("/register/{tenantID}/users/{id}", h.getUser)

	r.Route("/admin", func(ar chi.Router) {
		ar.Get("/schemas", h.listSchemas)
		ar.Post("/schemas", h.createSchema)
		ar.Get("/schemas/{tenantID}", h.getSchema)
		ar.Put("/schemas/{tenantID}", h.updateSchema)
		ar.Delete("/schemas/{tenantID}", h.deleteSchema)
		ar.Post("/tenants", h.createTenant)
		ar.Get("/audit", h.listAudit)
	})

	return r
}

// envelope is the uniform response shape: {success, message?, data?, errors?}.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type schemaResponse struct {
	TenantID  string                   `json:"tenantId"`
	Fields    []domain.FieldDefinition `json:"fields"`
	CreatedAt string                   `json:"createdAt,omitempty"`
	UpdatedAt string                   `json:"updatedAt,omitempty"`
}

type tenantResponse struct {
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

type userResponse struct {
	ID        string                       `json:"id"`
	TenantID  string                       `json:"tenantId"`
	Fields    map[string]domain.FieldValue `json:"fields"`
	CreatedAt string                       `json:"createdAt"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type createSchemaRequest struct {
	TenantID string                   `json:"tenantId"`
	Fields   []domain.FieldDefinition `json:"fields"`
}

type updateSchemaRequest struct {
	Fields []domain.FieldDefinition `json:"fields"`
}

type createTenantRequest struct {
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

func (h *Handler) getFields(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	schema, err := h.registry.GetSchema(r.Context(), tenantID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, schemaResponse{TenantID: schema.TenantID, Fields: schema.Fields})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	var data map[string]domain.FieldValue
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "submission must be a JSON object of scalar values")
		return
	}
	if err := ensureEOF(decoder); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user, err := h.registration.Register(r.Context(), tenantID, data)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]any{
		"userId":   user.ID,
		"tenantId": user.TenantID,
		"fields":   user.Fields,
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	page := parsePositiveInt(r.URL.Query().Get("page"), 1)
	limit := parsePositiveInt(r.URL.Query().Get("limit"), 10)

	users, total, err := h.registration.ListUsers(r.Context(), tenantID, page, limit)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	result := make([]userResponse, 0, len(users))
	for _, user := range users {
		result = append(result, toUserResponse(user))
	}

	writeData(w, http.StatusOK, map[string]any{
		"users": result,
		"pagination": paginationResponse{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	id := chi.URLParam(r, "id")

	user, err := h.registration.GetUser(r.Context(), tenantID, id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	tenants, schemas, err := h.registry.ListAll(r.Context())
	if err != nil {
		handleDomainError(w, err)
		return
	}

	tenantResult := make([]tenantResponse, 0, len(tenants))
	for _, tenant := range tenants {
		tenantResult = append(tenantResult, toTenantResponse(tenant))
	}
	schemaResult := make([]schemaResponse, 0, len(schemas))
	for _, schema := range schemas {
		schemaResult = append(schemaResult, toSchemaResponse(schema))
	}

	writeData(w, http.StatusOK, map[string]any{
		"tenants": tenantResult,
		"schemas": schemaResult,
	})
}

func (h *Handler) createSchema(w http.ResponseWriter, r *http.Request) {
	var req createSchemaRequest
	if !decodeBody(w, r, &req) {
		return
	}

	schema, err := h.registry.CreateSchema(r.Context(), req.TenantID, req.Fields, actorFrom(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeData(w, http.StatusCreated, toSchemaResponse(schema))
}

func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.registry.GetSchema(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, toSchemaResponse(schema))
}

func (h *Handler) updateSchema(w http.ResponseWriter, r *http.Request) {
	var req updateSchemaRequest
	if !decodeBody(w, r, &req) {
		return
	}

	schema, err := h.registry.UpdateSchema(r.Context(), chi.URLParam(r, "tenantID"), req.Fields, actorFrom(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, toSchemaResponse(schema))
}

func (h *Handler) deleteSchema(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if err := h.registry.DeleteSchema(r.Context(), tenantID, actorFrom(r)); err != nil {
		handleDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "schema deleted")
}

func (h *Handler) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if !decodeBody(w, r, &req) {
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	tenant, err := h.registry.CreateTenant(r.Context(), domain.Tenant{
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    isActive,
	}, actorFrom(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeData(w, http.StatusCreated, toTenantResponse(tenant))
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.List(r.Context(), domain.AuditFilter{
		TenantID: r.URL.Query().Get("tenant"),
		Action:   r.URL.Query().Get("action"),
		AfterID:  int64(parsePositiveInt(r.URL.Query().Get("after"), 0)),
		Limit:    parsePositiveInt(r.URL.Query().Get("limit"), 0),
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]bool{"ok": true})
}

func toSchemaResponse(schema domain.Schema) schemaResponse {
	return schemaResponse{
		TenantID:  schema.TenantID,
		Fields:    schema.Fields,
		CreatedAt: schema.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: schema.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toTenantResponse(tenant domain.Tenant) tenantResponse {
	return tenantResponse{
		TenantID:    tenant.TenantID,
		Name:        tenant.Name,
		Description: tenant.Description,
		IsActive:    tenant.IsActive,
		CreatedAt:   tenant.CreatedAt.UTC().Format(timeFormat),
	}
}

func toUserResponse(user domain.RegisteredUser) userResponse {
	return userResponse{
		ID:        user.ID,
		TenantID:  user.TenantID,
		Fields:    user.Fields,
		CreatedAt: user.CreatedAt.UTC().Format(timeFormat),
	}
}

// actorFrom names the admin for audit rows. There is no authentication; the
// header is a courtesy label.
func actorFrom(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get("X-Admin-Actor")); actor != "" {
		return actor
	}
	return "admin"
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := ensureEOF(decoder); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

// parsePositiveInt falls back to def on absent, non-numeric, or non-positive
// input; bad pagination input is the default page, not an error.
func parsePositiveInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return def
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("encode json response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

func handleDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var schemaErr *domain.SchemaDefinitionError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "validation failed", Errors: validationErr.Fields})
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusBadRequest, schemaErr.Error())
	case errors.Is(err, domain.ErrInvalidTenantID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusInternalServerError, "storage unavailable")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}
