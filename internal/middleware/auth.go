package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const CredentialKey contextKey = "gemini_credential"

const HeaderGoogAPIKey = "X-Goog-Api-Key"

// CredentialFromRequest reads the caller's Gemini key from X-Goog-Api-Key
// or "Authorization: Bearer <key>". Returns "" when neither is set.
func CredentialFromRequest(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(HeaderGoogAPIKey)); key != "" {
		return key
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// APICredential puts the request credential in the context. A missing key
// is not rejected here; the analysis reports it as a missing credential.
func APICredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := CredentialFromRequest(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), CredentialKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCredentialFromContext extracts the credential set by APICredential
func GetCredentialFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(CredentialKey).(string); ok {
		return key
	}
	return ""
}
