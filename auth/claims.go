package auth

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the JWT claims structure for canvas room sessions. It
// embeds jwt.RegisteredClaims for standard fields (exp, iat, etc.) and adds
// the identity a socket or tool client connects with.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	RoomID    string `json:"room_id"`
	ActorID   string `json:"actor_id,omitempty"`
	Role      string `json:"role,omitempty"` // "editor", "viewer"
}
