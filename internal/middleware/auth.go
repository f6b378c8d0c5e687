package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/encero/chores-tracker-sub000/internal/auth"
	"github.com/encero/chores-tracker-sub000/internal/store"
)

// SessionCookieName is the cookie carrying the parent session token.
const SessionCookieName = "chores_session"

// LoadSession attaches the parent session to the request context when the
// cookie holds a live token. Requests without one pass through unchanged.
func LoadSession(sessionStore *store.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{SessionID: sess.ID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent rejects requests that LoadSession did not authenticate.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "parent login required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
