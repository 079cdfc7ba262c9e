// Package middleware contains HTTP middleware for the site-improver API.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dizid/site-improver/internal/auth"
	"github.com/dizid/site-improver/internal/store"
	"github.com/dizid/site-improver/pkg/api"
)

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: message,
		Code:  "401",
	})
}

// Auth authenticates requests by API key. The Bearer token is hashed and
// looked up against stored tenant key hashes; the resolved tenant is placed
// on the request context for scoping downstream.
func Auth(tenants store.TenantStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, "Invalid authorization header")
				return
			}

			hash := auth.HashKey(parts[1])
			tenant, err := tenants.GetTenantByAPIKeyHash(r.Context(), hash)
			if err != nil {
				unauthorized(w, "Invalid API key")
				return
			}

			ctx := store.WithTenant(r.Context(), tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
