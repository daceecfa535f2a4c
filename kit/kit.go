// Package kit holds the small cross-cutting pieces shared by toile's
// transports: typed context enrichment for request identity and the
// endpoint-to-MCP-tool bridge.
package kit

import "context"

// Endpoint is a transport-agnostic operation: a typed request in, a
// serializable response out. The widget service exposes every tool as an
// Endpoint so MCP, QUIC and HTTP bindings share one implementation.
type Endpoint func(ctx context.Context, request any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior (audit, policy).
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares left-to-right: the first argument is the
// outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

type contextKey string

const (
	SessionIDKey  contextKey = "toile_session_id"
	RoomIDKey     contextKey = "toile_room_id"
	TransportKey  contextKey = "toile_transport" // "http", "mcp_stdio", "mcp_quic", "ws"
	RemoteAddrKey contextKey = "toile_remote_addr"
)

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}
func GetSessionID(ctx context.Context) string {
	v, _ := ctx.Value(SessionIDKey).(string)
	return v
}

func WithRoomID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RoomIDKey, id)
}
func GetRoomID(ctx context.Context) string {
	v, _ := ctx.Value(RoomIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}
func GetRemoteAddr(ctx context.Context) string {
	v, _ := ctx.Value(RemoteAddrKey).(string)
	return v
}
