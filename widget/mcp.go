// CLAUDE:SUMMARY MCP bindings for the widget tools: one tool per operation, room_id optional with a configured default.
package widget

import (
	"context"

	"github.com/hazyhaar/toile/kit"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers all widget tools on an MCP server. Tools accept an
// optional room_id argument; calls that omit it run against defaultRoomID.
func (svc *Service) RegisterMCP(srv *mcp.Server, defaultRoomID string) {
	svc.registerListPages(srv, defaultRoomID)
	svc.registerListWidgets(srv, defaultRoomID)
	svc.registerAddWidget(srv, defaultRoomID)
	svc.registerEditHTML(srv, defaultRoomID)
	svc.registerUpdateStorage(srv, defaultRoomID)
	svc.registerGenerate(srv, defaultRoomID)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func roomOr(roomID, fallback string) string {
	if roomID != "" {
		return roomID
	}
	return fallback
}

var roomIDProp = map[string]any{"type": "string", "description": "Canvas room ID (defaults to the server's configured room)"}

func (svc *Service) registerListPages(srv *mcp.Server, defaultRoomID string) {
	type req struct {
		RoomID string `json:"room_id"`
	}

	tool := &mcp.Tool{
		Name:        "toile_list_pages",
		Description: "List the pages of a canvas room with the derived default page",
		InputSchema: inputSchema(map[string]any{
			"room_id": roomIDProp,
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.ListPages(ctx, roomOr(p.RoomID, defaultRoomID))
	}

	kit.RegisterMCPTool(srv, tool, svc.Endpoint(tool.Name, endpoint), kit.DecodeJSON[req])
}

func (svc *Service) registerListWidgets(srv *mcp.Server, defaultRoomID string) {
	type req struct {
		RoomID string   `json:"room_id"`
		PageID string   `json:"page_id"`
		IDs    []string `json:"ids"`
		Fields string   `json:"fields"`
	}

	tool := &mcp.Tool{
		Name:        "toile_list_widgets",
		Description: "List widget shapes, optionally filtered by page or shape ids, with selectable field projections",
		InputSchema: inputSchema(map[string]any{
			"room_id": roomIDProp,
			"page_id": map[string]any{"type": "string", "description": "Filter to widgets on this page"},
			"ids":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Filter to these shape ids"},
			"fields":  map[string]any{"type": "string", "description": "Comma-separated projections: htmlContent, storage, position, size, rawProperties"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.ListWidgets(ctx, roomOr(p.RoomID, defaultRoomID), ListWidgetsParams{
			PageID: p.PageID,
			IDs:    p.IDs,
			Fields: p.Fields,
		})
	}

	kit.RegisterMCPTool(srv, tool, svc.Endpoint(tool.Name, endpoint), kit.DecodeJSON[req])
}

func (svc *Service) registerAddWidget(srv *mcp.Server, defaultRoomID string) {
	type req struct {
		RoomID     string    `json:"room_id"`
		TemplateID string    `json:"template_id"`
		PageID     string    `json:"page_id"`
		Position   *Position `json:"position"`
		Size       *Size     `json:"size"`
	}

	tool := &mcp.Tool{
		Name:        "toile_add_widget",
		Description: "Add a widget from a template to a canvas room",
		InputSchema: inputSchema(map[string]any{
			"room_id":     roomIDProp,
			"template_id": map[string]any{"type": "string", "description": "Template ID to instantiate"},
			"page_id":     map[string]any{"type": "string", "description": "Page to place the widget on"},
			"position":    map[string]any{"type": "object", "description": "Canvas position {x, y}"},
			"size":        map[string]any{"type": "object", "description": "Widget size {w, h}"},
		}, []string{"template_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.AddWidget(ctx, roomOr(p.RoomID, defaultRoomID), AddWidgetParams{
			TemplateID: p.TemplateID,
			PageID:     p.PageID,
			Position:   p.Position,
			Size:       p.Size,
		})
	}

	kit.RegisterMCPTool(srv, tool, svc.Endpoint(tool.Name, endpoint), kit.DecodeJSON[req])
}

func (svc *Service) registerEditHTML(srv *mcp.Server, defaultRoomID string) {
	type req struct {
		RoomID          string `json:"room_id"`
		ShapeID         string `json:"shape_id"`
		HTML            string `json:"html_content"`
		PreserveStorage bool   `json:"preserve_storage"`
	}

	tool := &mcp.Tool{
		Name:        "toile_edit_widget_html",
		Description: "Overwrite a widget's HTML after substituting {{ns:key}} placeholders from its storage; clears storage unless preserve_storage",
		InputSchema: inputSchema(map[string]any{
			"room_id":          roomIDProp,
			"shape_id":         map[string]any{"type": "string", "description": "Shape ID of the widget"},
			"html_content":     map[string]any{"type": "string", "description": "New HTML content"},
			"preserve_storage": map[string]any{"type": "boolean", "description": "Keep storage instead of clearing it"},
		}, []string{"shape_id", "html_content"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.EditWidgetHTML(ctx, roomOr(p.RoomID, defaultRoomID), EditHTMLParams{
			ShapeID:         p.ShapeID,
			HTML:            p.HTML,
			PreserveStorage: p.PreserveStorage,
		})
	}

	kit.RegisterMCPTool(srv, tool, svc.Endpoint(tool.Name, endpoint), kit.DecodeJSON[req])
}

func (svc *Service) registerUpdateStorage(srv *mcp.Server, defaultRoomID string) {
	type req struct {
		RoomID  string            `json:"room_id"`
		ShapeID string            `json:"shape_id"`
		Data    map[string]string `json:"storage_data"`
		Merge   bool              `json:"merge"`
	}

	tool := &mcp.Tool{
		Name:        "toile_update_widget_storage",
		Description: "Write a widget's key-value storage, merging or replacing",
		InputSchema: inputSchema(map[string]any{
			"room_id":      roomIDProp,
			"shape_id":     map[string]any{"type": "string", "description": "Shape ID of the widget"},
			"storage_data": map[string]any{"type": "object", "description": "String key-value pairs to write"},
			"merge":        map[string]any{"type": "boolean", "description": "Merge into existing storage instead of replacing"},
		}, []string{"shape_id", "storage_data"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.UpdateWidgetStorage(ctx, roomOr(p.RoomID, defaultRoomID), UpdateStorageParams{
			ShapeID: p.ShapeID,
			Data:    p.Data,
			Merge:   p.Merge,
		})
	}

	kit.RegisterMCPTool(srv, tool, svc.Endpoint(tool.Name, endpoint), kit.DecodeJSON[req])
}

func (svc *Service) registerGenerate(srv *mcp.Server, defaultRoomID string) {
	type req struct {
		RoomID   string    `json:"room_id"`
		Prompt   string    `json:"prompt"`
		Style    string    `json:"style"`
		PageID   string    `json:"page_id"`
		Position *Position `json:"position"`
		AutoAdd  bool      `json:"auto_add"`
	}

	tool := &mcp.Tool{
		Name:        "toile_generate_widget",
		Description: "Generate widget HTML from a prompt, optionally placing it on the canvas",
		InputSchema: inputSchema(map[string]any{
			"room_id":  roomIDProp,
			"prompt":   map[string]any{"type": "string", "description": "Free-text description of the widget"},
			"style":    map[string]any{"type": "string", "description": "Optional visual style hint"},
			"page_id":  map[string]any{"type": "string", "description": "Page to place the widget on when auto_add"},
			"position": map[string]any{"type": "object", "description": "Canvas position {x, y}"},
			"auto_add": map[string]any{"type": "boolean", "description": "Place the generated widget on the canvas"},
		}, []string{"prompt"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return svc.GenerateWidget(ctx, roomOr(p.RoomID, defaultRoomID), GenerateParams{
			Prompt:   p.Prompt,
			Style:    p.Style,
			PageID:   p.PageID,
			Position: p.Position,
			AutoAdd:  p.AutoAdd,
		})
	}

	kit.RegisterMCPTool(srv, tool, svc.Endpoint(tool.Name, endpoint), kit.DecodeJSON[req])
}
