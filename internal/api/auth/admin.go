// Package auth guards the admin endpoints with a static bearer token whose bcrypt hash
// is supplied through ADMIN_TOKEN_HASH.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Spinergy/internal/api/apiutil"
)

var (
	errAdminDisabled = apiutil.HandlerError{Status: http.StatusForbidden, Message: "admin access is not configured", Err: errors.New("admin token hash not set")}
	errUnauthorized  = apiutil.HandlerError{Status: http.StatusUnauthorized, Message: "admin token required"}
)

type AdminAuth struct {
	hash string
}

func NewAdminAuth(hash string) *AdminAuth {
	return &AdminAuth{hash: strings.TrimSpace(hash)}
}

func (a *AdminAuth) Enabled() bool {
	return a != nil && a.hash != ""
}

// Require rejects requests that do not carry "Authorization: Bearer <token>" matching the
// configured hash. With no hash configured every request is forbidden.
func (a *AdminAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			apiutil.WriteError(w, r, errAdminDisabled)
			return
		}
		token, ok := bearerToken(r)
		if !ok || !VerifyToken(a.hash, token) {
			log.Ctx(r.Context()).Warn().
				Str("path", r.URL.Path).
				Bool("token_present", ok).
				Msg("Admin authentication failed")
			w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
			apiutil.WriteError(w, r, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
