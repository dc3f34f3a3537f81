package web

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/JonMunkholm/etl/internal/config"
	"github.com/JonMunkholm/etl/internal/host"
	"github.com/JonMunkholm/etl/internal/web/middleware"
)

// Request headers naming who acts and where. A reverse proxy doing the
// authentication sets them; config supplies the defaults.
const (
	HeaderUser    = "X-User"
	HeaderProfile = "X-Profile"
	HeaderEntity  = "X-Entity"
)

type sessionKey struct{}

// ContextWithSession stores the host session of the request.
func ContextWithSession(ctx context.Context, sess *host.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the host session stored by the session middleware.
func SessionFromContext(ctx context.Context) (*host.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*host.Session)
	return sess, ok && sess != nil
}

// withSession builds a host session from the request headers. The entity
// must be a number listed in cfg.Entities when that list is set.
func withSession(cfg config.HostConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := strings.TrimSpace(r.Header.Get(HeaderProfile))
			if profile == "" {
				profile = cfg.DefaultProfile
			}

			entity := cfg.DefaultEntity
			if v := strings.TrimSpace(r.Header.Get(HeaderEntity)); v != "" {
				id, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					writeError(w, r, http.StatusBadRequest, "invalid "+HeaderEntity+" header")
					return
				}
				entity = id
			}
			if len(cfg.Entities) > 0 && !slices.Contains(cfg.Entities, entity) {
				writeError(w, r, http.StatusForbidden, "entity "+strconv.FormatInt(entity, 10)+" is not allowed")
				return
			}

			user := strings.TrimSpace(r.Header.Get(HeaderUser))
			if user == "" {
				user = middleware.ClientIP(r)
			}

			sess := host.NewSession(user, profile, entity, cfg.Entities...)
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
		})
	}
}
