package middleware

import (
	"context"
	"log"
	"net/http"
)

// Define context keys
type contextKey string

const UserIDKey contextKey = "user_id"

// AuthMiddleware extracts the caller identity established by the upstream
// gateway. Token verification happens before requests reach this service;
// here we only require that an owner id is present, since every record is
// partitioned by owner.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth for OPTIONS requests (CORS preflight)
		if r.Method == "OPTIONS" {
			next.ServeHTTP(w, r)
			return
		}

		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			// Fallback to query parameter for older clients
			userID = r.URL.Query().Get("userId")
		}
		if userID == "" {
			log.Printf("Rejected request to %s: no user identity", r.URL.Path)
			http.Error(w, "Unauthorized: no user identity provided", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext retrieves the user ID from the request context
func GetUserIDFromContext(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}
