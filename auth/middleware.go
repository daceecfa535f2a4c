package auth

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/hazyhaar/toile/kit"
	"golang.org/x/crypto/bcrypt"
)

type claimsKey struct{}

// Middleware returns an http.Handler middleware that extracts a session JWT
// from the Authorization Bearer header, the "token" cookie, or the "token"
// query parameter (browser WebSocket clients cannot set headers). If valid,
// the parsed SessionClaims are injected into the request context along with
// kit.SessionIDKey and kit.RoomIDKey for the transport layer. Invalid or
// missing tokens are silently ignored — use RequireSession to enforce.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
				tokenStr = h[7:]
			}
			if tokenStr == "" {
				if c, err := r.Cookie("token"); err == nil && c.Value != "" {
					tokenStr = c.Value
				}
			}
			if tokenStr == "" {
				tokenStr = r.URL.Query().Get("token")
			}

			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ValidateToken(secret, tokenStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			ctx = kit.WithSessionID(ctx, claims.SessionID)
			if claims.RoomID != "" {
				ctx = kit.WithRoomID(ctx, claims.RoomID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the SessionClaims from the context, or nil if absent.
func GetClaims(ctx context.Context) *SessionClaims {
	c, _ := ctx.Value(claimsKey{}).(*SessionClaims)
	return c
}

// RequireSession is an http.Handler middleware that rejects requests
// without validated SessionClaims in context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaims(r.Context()) == nil {
			http.Error(w, "session token required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoom rejects requests whose session claims are bound to a
// different room than the one addressed in the URL. roomID extracts the
// addressed room from the request (usually a chi URL parameter).
func RequireRoom(roomID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				http.Error(w, "session token required", http.StatusUnauthorized)
				return
			}
			if want := roomID(r); want != "" && claims.RoomID != "" && claims.RoomID != want {
				http.Error(w, "session not valid for this room", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BasicAuth guards admin surfaces with a single username and a bcrypt hash
// of the password. Comparison against the username is constant-time;
// bcrypt handles the password.
func BasicAuth(username string, passwordHash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
				bcrypt.CompareHashAndPassword(passwordHash, []byte(pass)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="toile"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
