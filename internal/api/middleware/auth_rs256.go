package middleware

import (
	"crypto/rsa"
	"net/http"
	"strings"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/api/auth"
)

type AuthMiddleware struct {
	Env       string
	PublicKey *rsa.PublicKey
	Next      http.Handler
}

func (m AuthMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.Next == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	authz := strings.TrimSpace(r.Header.Get("Authorization"))

	// In dev, requests without Authorization pass through as the dev caller.
	if authz == "" && strings.EqualFold(strings.TrimSpace(m.Env), "dev") {
		m.Next.ServeHTTP(w, r.WithContext(auth.WithSubject(r.Context(), auth.DevSubject)))
		return
	}

	if !strings.HasPrefix(authz, "Bearer ") {
		unauthorized(w, "missing bearer token")
		return
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	if tokenString == "" {
		unauthorized(w, "empty bearer token")
		return
	}

	claims, err := auth.ParseAndValidateRS256(tokenString, m.PublicKey)
	if err != nil {
		unauthorized(w, "invalid token")
		return
	}

	ctx := auth.WithSubject(r.Context(), claims.Subject)
	m.Next.ServeHTTP(w, r.WithContext(ctx))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + msg + `"}`))
}
