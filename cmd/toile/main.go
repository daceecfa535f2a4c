// CLAUDE:SUMMARY Entry point for the toile canvas service — chi router, session tokens, websocket connect, MCP over stdio or QUIC.
package main

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/toile/auth"
	"github.com/hazyhaar/toile/blob"
	"github.com/hazyhaar/toile/dbopen"
	"github.com/hazyhaar/toile/idgen"
	"github.com/hazyhaar/toile/kit"
	"github.com/hazyhaar/toile/mcpquic"
	"github.com/hazyhaar/toile/observability"
	"github.com/hazyhaar/toile/room"
	"github.com/hazyhaar/toile/widget"
)

func main() {
	port := env("PORT", "8090")
	secretInput := os.Getenv("SESSION_SECRET")
	if secretInput == "" {
		slog.Error("SESSION_SECRET is required")
		os.Exit(1)
	}
	// Derive a 32-byte JWT secret via SHA-256 (satisfies auth.MinSecretLen).
	secretHash := sha256.Sum256([]byte(secretInput))
	jwtSecret := secretHash[:]

	roomsPath := env("ROOMS_DB", "db/rooms.db")
	eventsPath := env("EVENTS_DB", "db/events.db")
	defaultRoom := env("DEFAULT_ROOM", "canvas")
	catalogPath := env("TEMPLATE_CATALOG", "")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	persistMS, err := strconv.Atoi(env("PERSIST_INTERVAL_MS", "10000"))
	if err != nil || persistMS <= 0 {
		slog.Error("PERSIST_INTERVAL_MS must be a positive integer")
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logWriter := io.Writer(os.Stdout)
	if mcpTransport == "stdio" {
		// stdout carries JSON-RPC in stdio mode.
		logWriter = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Rooms DB: snapshot and binding blobs.
	roomsDB, err := dbopen.Open(roomsPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("rooms db", "error", err)
		os.Exit(1)
	}
	defer roomsDB.Close()
	blobs := blob.NewSQLiteStore(roomsDB)
	if err := blobs.Init(); err != nil {
		slog.Error("blob init", "error", err)
		os.Exit(1)
	}

	// Events DB kept separate so audit writes never contend with snapshot
	// saves.
	eventsDB, err := dbopen.Open(eventsPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("events db", "error", err)
		os.Exit(1)
	}
	defer eventsDB.Close()
	events := observability.NewSQLiteLogger(eventsDB, observability.WithLogger(logger))
	if err := events.Init(); err != nil {
		slog.Error("events init", "error", err)
		os.Exit(1)
	}
	defer events.Close()

	// Rooms.
	registry := room.NewRegistry(blobs, room.Config{
		PersistInterval: time.Duration(persistMS) * time.Millisecond,
		OnSaveError: func(roomID string, err error) {
			events.LogAsync(&observability.Entry{
				Action: "room_snapshot_save",
				RoomID: roomID,
				Status: "error",
				Error:  err.Error(),
			})
		},
	}, logger)

	// Widget tools.
	svcOpts := []widget.Option{
		widget.WithInstrumentation(func(action string) kit.Middleware {
			return observability.Middleware(events, action)
		}),
	}
	if catalogPath != "" {
		catalog, err := widget.LoadCatalog(catalogPath)
		if err != nil {
			slog.Error("template catalog", "error", err)
			os.Exit(1)
		}
		svcOpts = append(svcOpts, widget.WithCatalog(catalog))
	}
	svc := widget.NewService(registry, logger, svcOpts...)

	// MCP surface.
	mcpSrv := mcp.NewServer(&mcp.Implementation{
		Name:    "toile",
		Version: "1.0.0",
	}, nil)
	svc.RegisterMCP(mcpSrv, defaultRoom)

	switch mcpTransport {
	case "stdio":
		// Exclusive mode: serve the agent on stdin/stdout, no HTTP.
		slog.Info("MCP stdio starting", "default_room", defaultRoom)
		stdioCtx := kit.WithTransport(ctx, "mcp_stdio")
		if err := mcpSrv.Run(stdioCtx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
		}
		shutdownRooms(registry)
		return
	case "quic":
		quicAddr := env("MCP_QUIC_ADDR", ":9447")
		certFile := env("TLS_CERT", "")
		keyFile := env("TLS_KEY", "")

		var tlsCfg *tls.Config
		if certFile != "" && keyFile != "" {
			tlsCfg, err = mcpquic.ServerTLSConfig(certFile, keyFile)
		} else {
			tlsCfg, err = mcpquic.SelfSignedTLSConfig()
		}
		if err != nil {
			slog.Error("MCP QUIC TLS", "error", err)
		} else {
			ql, qErr := mcpquic.NewListener(quicAddr, tlsCfg, mcpSrv, logger)
			if qErr != nil {
				slog.Error("MCP QUIC listener", "error", qErr)
			} else {
				go func() {
					slog.Info("MCP QUIC starting", "addr", quicAddr)
					if sErr := ql.Serve(ctx); sErr != nil && ctx.Err() == nil {
						slog.Error("MCP QUIC", "error", sErr)
					}
				}()
				defer ql.Close()
			}
		}
	}

	// Router.
	r := chi.NewRouter()
	r.Use(auth.Middleware(jwtSecret)) // soft parse; enforcement is per-route

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Session minting. A token binds one session to one room.
	newSessionID := idgen.Prefixed("sess_", idgen.NanoID(12))
	r.Post("/session", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			RoomID  string `json:"room_id"`
			ActorID string `json:"actor_id"`
			Role    string `json:"role"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeToolError(w, 400, err)
			return
		}
		if body.RoomID == "" {
			body.RoomID = defaultRoom
		}
		if body.Role == "" {
			body.Role = "editor"
		}
		sessionID := newSessionID()
		token, err := auth.GenerateToken(jwtSecret, &auth.SessionClaims{
			SessionID: sessionID,
			RoomID:    body.RoomID,
			ActorID:   body.ActorID,
			Role:      body.Role,
		}, 24*time.Hour)
		if err != nil {
			writeToolError(w, 500, err)
			return
		}
		writeJSON(w, 201, map[string]string{
			"token":      token,
			"session_id": sessionID,
			"room_id":    body.RoomID,
		})
	})

	// Tool routes. Same endpoints as the MCP surface, same event log.
	roomParam := func(req *http.Request) string { return chi.URLParam(req, "roomID") }
	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Use(auth.RequireRoom(roomParam))

		r.Get("/pages", toolHandler(svc.Endpoint("toile_list_pages", func(ctx context.Context, _ any) (any, error) {
			return svc.ListPages(ctx, kit.GetRoomID(ctx))
		}), decodeNone))

		r.Get("/widgets", toolHandler(svc.Endpoint("toile_list_widgets", func(ctx context.Context, req any) (any, error) {
			return svc.ListWidgets(ctx, kit.GetRoomID(ctx), *req.(*widget.ListWidgetsParams))
		}), func(req *http.Request) (any, error) {
			q := req.URL.Query()
			params := &widget.ListWidgetsParams{
				PageID: q.Get("pageId"),
				Fields: q.Get("fields"),
			}
			if ids := q.Get("ids"); ids != "" {
				params.IDs = splitIDs(ids)
			}
			return params, nil
		}))

		r.Post("/widgets", toolHandler(svc.Endpoint("toile_add_widget", func(ctx context.Context, req any) (any, error) {
			return svc.AddWidget(ctx, kit.GetRoomID(ctx), *req.(*widget.AddWidgetParams))
		}), decodeBody[addWidgetBody](func(b *addWidgetBody) any {
			return &widget.AddWidgetParams{
				TemplateID: b.TemplateID,
				PageID:     b.PageID,
				Position:   b.Position,
				Size:       b.Size,
			}
		})))

		r.Post("/widgets/{shapeID}/html", toolHandler(svc.Endpoint("toile_edit_widget_html", func(ctx context.Context, req any) (any, error) {
			return svc.EditWidgetHTML(ctx, kit.GetRoomID(ctx), *req.(*widget.EditHTMLParams))
		}), decodeShapeBody[editHTMLBody](func(shapeID string, b *editHTMLBody) any {
			return &widget.EditHTMLParams{
				ShapeID:         shapeID,
				HTML:            b.HTML,
				PreserveStorage: b.PreserveStorage,
			}
		})))

		r.Post("/widgets/{shapeID}/storage", toolHandler(svc.Endpoint("toile_update_widget_storage", func(ctx context.Context, req any) (any, error) {
			return svc.UpdateWidgetStorage(ctx, kit.GetRoomID(ctx), *req.(*widget.UpdateStorageParams))
		}), decodeShapeBody[storageBody](func(shapeID string, b *storageBody) any {
			return &widget.UpdateStorageParams{
				ShapeID: shapeID,
				Data:    b.Data,
				Merge:   b.Merge,
			}
		})))

		r.Post("/generate", toolHandler(svc.Endpoint("toile_generate_widget", func(ctx context.Context, req any) (any, error) {
			return svc.GenerateWidget(ctx, kit.GetRoomID(ctx), *req.(*widget.GenerateParams))
		}), decodeBody[generateBody](func(b *generateBody) any {
			return &widget.GenerateParams{
				Prompt:   b.Prompt,
				Style:    b.Style,
				PageID:   b.PageID,
				Position: b.Position,
				AutoAdd:  b.AutoAdd,
			}
		})))

		// Live updates. The session token rode in as a query parameter; the
		// room check already ran in middleware.
		r.Get("/connect", func(w http.ResponseWriter, req *http.Request) {
			roomID := chi.URLParam(req, "roomID")
			rm, err := registry.Acquire(req.Context(), roomID)
			if err != nil {
				writeToolError(w, 500, err)
				return
			}
			conn, err := upgrader.Upgrade(w, req, nil)
			if err != nil {
				slog.Warn("websocket upgrade failed", "room", roomID, "error", err)
				return
			}
			claims := auth.GetClaims(req.Context())
			rm.AcceptSocket(claims.SessionID, conn)
		})
	})

	// Admin surface, guarded by basic auth when configured.
	adminUser := env("ADMIN_USER", "")
	adminHash := env("ADMIN_PASSWORD_HASH", "")
	if adminUser != "" && adminHash != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.BasicAuth(adminUser, []byte(adminHash)))
			r.Get("/events", func(w http.ResponseWriter, req *http.Request) {
				limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
				entries, err := events.Recent(req.Context(), limit)
				if err != nil {
					writeToolError(w, 500, err)
					return
				}
				writeJSON(w, 200, entries)
			})
		})
	}

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	shutdownRooms(registry)
	slog.Info("server stopped")
}

// shutdownRooms flushes every open room so pending throttled saves hit disk.
func shutdownRooms(registry *room.Registry) {
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	if err := registry.Close(flushCtx); err != nil {
		slog.Error("room flush", "error", err)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Same-origin policy is enforced by the session token, not Origin.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// --- HTTP tool plumbing ---

type addWidgetBody struct {
	TemplateID string           `json:"templateId"`
	PageID     string           `json:"pageId"`
	Position   *widget.Position `json:"position"`
	Size       *widget.Size     `json:"size"`
}

type editHTMLBody struct {
	HTML            string `json:"htmlContent"`
	PreserveStorage bool   `json:"preserveStorage"`
}

type storageBody struct {
	Data  map[string]string `json:"storageData"`
	Merge bool              `json:"merge"`
}

type generateBody struct {
	Prompt   string           `json:"prompt"`
	Style    string           `json:"style"`
	PageID   string           `json:"pageId"`
	Position *widget.Position `json:"position"`
	AutoAdd  bool             `json:"autoAdd"`
}

// toolHandler adapts a kit.Endpoint to an HTTP handler. Failures become a
// structured {success: false, error} payload, matching the MCP surface's
// in-band tool errors.
func toolHandler(endpoint kit.Endpoint, decode func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		payload, err := decode(req)
		if err != nil {
			writeToolError(w, 400, err)
			return
		}
		ctx := kit.WithRoomID(req.Context(), chi.URLParam(req, "roomID"))
		resp, err := endpoint(ctx, payload)
		if err != nil {
			writeToolError(w, 422, err)
			return
		}
		writeJSON(w, 200, resp)
	}
}

func decodeNone(_ *http.Request) (any, error) { return nil, nil }

func decodeBody[T any](build func(*T) any) func(*http.Request) (any, error) {
	return func(req *http.Request) (any, error) {
		var body T
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		return build(&body), nil
	}
}

func decodeShapeBody[T any](build func(string, *T) any) func(*http.Request) (any, error) {
	return func(req *http.Request) (any, error) {
		var body T
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		return build(chi.URLParam(req, "shapeID"), &body), nil
	}
}

func splitIDs(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeToolError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"success": false, "error": err.Error()})
}
