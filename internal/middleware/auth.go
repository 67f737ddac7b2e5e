package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware wpuszcza tylko żądania z poprawnym tokenem podglądu.
// The token is read from "Authorization: Bearer", the "token" query parameter
// (browsers cannot set headers on websockets) or the "preview_token" cookie.
// An empty token disables the check.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health check zawsze dostępny
			if token == "" || r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			if !validToken(requestToken(r), token) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if cookie, err := r.Cookie("preview_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func validToken(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
