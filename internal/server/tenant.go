package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/angelos/kbsync/internal/models"
)

// Tenant identity arrives as plain headers. Authentication itself happens
// upstream of this service.
const (
	orgIDHeader       = "X-Org-ID"
	systemAdminHeader = "X-System-Admin"
)

type tenantContextKey struct{}

// tenantMiddleware parses the tenant headers into a TenantContext and rejects
// requests without a valid organisation id.
func (s *Server) tenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, err := strconv.ParseInt(r.Header.Get(orgIDHeader), 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "missing or invalid "+orgIDHeader+" header")
			return
		}
		tenant := models.TenantContext{
			OrgID:         orgID,
			IsSystemAdmin: r.Header.Get(systemAdminHeader) == "true",
		}
		ctx := context.WithValue(r.Context(), tenantContextKey{}, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// tenantFrom returns the TenantContext placed by tenantMiddleware.
func tenantFrom(r *http.Request) models.TenantContext {
	tenant, _ := r.Context().Value(tenantContextKey{}).(models.TenantContext)
	return tenant
}
