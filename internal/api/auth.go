package api

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashKey returns the bcrypt hash stored in server.api_key_hash.
func HashKey(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(b), err
}

// CheckKey reports whether key matches hash.
func CheckKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

func (s *Server) withAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.APIKeyHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || key == "" || !CheckKey(s.APIKeyHash, key) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="clauseaudit"`)
			s.err(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
