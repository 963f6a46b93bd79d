package domain

import (
	"strings"
	"time"
)

// Tenant is the metadata record for one isolated customer. IsActive is
// informational only; request handling never checks it.
type Tenant struct {
	TenantID    string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
}

// NormalizeTenantID lowercases the raw id and strips every character outside
// [a-z0-9]. The result is the cache and storage-namespace key. Distinct raw
// ids that normalize identically ("Project-A", "projecta") deliberately share
// a namespace; that collision hazard is accepted and documented.
func NormalizeTenantID(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
