// CLAUDE:SUMMARY Widget tool service: the six canvas operations (pages, widgets, html edit, storage, generation) over a resolved room's record store.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hazyhaar/toile/idgen"
	"github.com/hazyhaar/toile/kit"
	"github.com/hazyhaar/toile/record"
	"github.com/hazyhaar/toile/room"
)

// RoomResolver hands out live rooms by id. *room.Registry satisfies it.
type RoomResolver interface {
	Acquire(ctx context.Context, roomID string) (*room.Room, error)
}

// Defaults stamped on widgets created without explicit geometry.
const (
	defaultWidgetW = 320.0
	defaultWidgetH = 240.0
	defaultColor   = "blue"
)

// Service implements the widget tools. All operations resolve the room
// through the RoomResolver, so the first call for a room pays its
// construction cost and later calls reuse the memoized instance.
type Service struct {
	rooms      RoomResolver
	catalog    *Catalog
	logger     *slog.Logger
	newShapeID idgen.Generator
	widgetID   func(templateID string) string
	instrument func(action string) kit.Middleware
}

// Option customizes a Service.
type Option func(*Service)

// WithCatalog replaces the built-in template catalog.
func WithCatalog(c *Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithShapeIDs overrides shape id generation. Tests use this for
// deterministic ids.
func WithShapeIDs(gen idgen.Generator) Option {
	return func(s *Service) { s.newShapeID = gen }
}

// WithWidgetIDs overrides widget id generation.
func WithWidgetIDs(fn func(templateID string) string) Option {
	return func(s *Service) { s.widgetID = fn }
}

// WithInstrumentation wraps every registered tool endpoint with the
// middleware returned for its action name. Used to hang the event log off
// the tool surface without the service knowing about it.
func WithInstrumentation(fn func(action string) kit.Middleware) Option {
	return func(s *Service) { s.instrument = fn }
}

// NewService builds a widget Service over rooms.
func NewService(rooms RoomResolver, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		rooms:      rooms,
		catalog:    DefaultCatalog(),
		logger:     logger,
		newShapeID: idgen.Prefixed("shape:", idgen.NanoID(21)),
		widgetID:   idgen.WidgetID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoint wraps op as a kit.Endpoint under the service's instrumentation.
// Transports (MCP registration, HTTP routes) call tools through this so the
// event log sees every invocation regardless of entry point.
func (s *Service) Endpoint(action string, op kit.Endpoint) kit.Endpoint {
	if s.instrument == nil {
		return op
	}
	return s.instrument(action)(op)
}

// ListPages returns the room's pages in store iteration order. The default
// page is derived at query time as the first page; it is never persisted.
func (s *Service) ListPages(ctx context.Context, roomID string) (*ListPagesResult, error) {
	rm, err := s.rooms.Acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	pages := rm.Store().Snapshot().Pages()
	out := &ListPagesResult{Pages: make([]PageInfo, 0, len(pages))}
	for _, p := range pages {
		out.Pages = append(out.Pages, PageInfo{ID: p.ID, Name: p.DisplayName(), Index: p.Index})
	}
	if len(out.Pages) > 0 {
		out.DefaultPage = out.Pages[0].ID
	}
	return out, nil
}

// ListWidgets returns the room's widget shapes, optionally filtered by page
// and by shape id set, with optional field projections. The result echoes
// the page filter actually applied, PageIDAll when unfiltered.
func (s *Service) ListWidgets(ctx context.Context, roomID string, params ListWidgetsParams) (*ListWidgetsResult, error) {
	rm, err := s.rooms.Acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	fields := ParseFields(params.Fields)

	var idFilter map[string]bool
	if len(params.IDs) > 0 {
		idFilter = make(map[string]bool, len(params.IDs))
		for _, id := range params.IDs {
			idFilter[id] = true
		}
	}

	pageID := params.PageID
	if pageID == "" || pageID == PageIDAll {
		pageID = PageIDAll
	}

	out := &ListWidgetsResult{PageID: pageID, Widgets: []WidgetInfo{}}
	for _, sh := range rm.Store().Snapshot().Widgets() {
		if pageID != PageIDAll && sh.ParentID != pageID {
			continue
		}
		if idFilter != nil && !idFilter[sh.ID] {
			continue
		}
		out.Widgets = append(out.Widgets, projectWidget(sh, fields))
	}
	return out, nil
}

func projectWidget(sh *record.Shape, fields FieldSet) WidgetInfo {
	info := WidgetInfo{
		ShapeID:    sh.ID,
		WidgetID:   propString(sh.Props, record.PropWidgetID),
		TemplateID: propString(sh.Props, record.PropTemplateID),
	}
	if fields.Has(FieldHTML) {
		info.HTML = propString(sh.Props, record.PropHTML)
	}
	if fields.Has(FieldStorage) {
		info.Storage = storageOf(sh.Props)
	}
	if fields.Has(FieldPosition) {
		info.Position = &Position{X: sh.X, Y: sh.Y}
	}
	if fields.Has(FieldSize) {
		info.Size = &Size{W: propNumber(sh.Props, record.PropWidth), H: propNumber(sh.Props, record.PropHeight)}
	}
	if fields.Has(FieldRaw) {
		info.Raw = sh.Props
	}
	return info
}

// AddWidget creates one widget shape from a template.
//
// When pageId is omitted the shape's parentId is set to the literal
// DefaultPagePlaceholder, NOT the room's actual first page. A widget placed
// this way is orphaned unless a page with that exact id exists; callers
// wanting the real default page must resolve ListPages first.
func (s *Service) AddWidget(ctx context.Context, roomID string, params AddWidgetParams) (*AddWidgetResult, error) {
	if params.TemplateID == "" {
		return nil, ErrMissingTemplateID
	}
	rm, err := s.rooms.Acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	html := Sanitize(s.catalog.Resolve(params.TemplateID))
	return s.placeWidget(rm, params.TemplateID, html, params.PageID, params.Position, params.Size)
}

func (s *Service) placeWidget(rm *room.Room, templateID, html, pageID string, pos *Position, size *Size) (*AddWidgetResult, error) {
	if pageID == "" {
		pageID = DefaultPagePlaceholder
	}
	x, y := 0.0, 0.0
	if pos != nil {
		x, y = pos.X, pos.Y
	}
	w, h := defaultWidgetW, defaultWidgetH
	if size != nil {
		w, h = size.W, size.H
	}

	shapeID := s.newShapeID()
	widgetID := s.widgetID(templateID)
	sh := &record.Shape{
		ID:       shapeID,
		TypeName: record.TypeShape,
		Type:     record.ShapeWidget,
		ParentID: pageID,
		X:        x,
		Y:        y,
		Props: map[string]any{
			record.PropWidgetID:   widgetID,
			record.PropTemplateID: templateID,
			record.PropHTML:       html,
			record.PropWidth:      w,
			record.PropHeight:     h,
			record.PropColor:      defaultColor,
			record.PropStorage:    map[string]string{},
		},
	}
	if err := rm.Store().Put(sh); err != nil {
		return nil, fmt.Errorf("widget: add: %w", err)
	}
	s.logger.Info("widget: added", "room", rm.ID(), "shape", shapeID, "template", templateID, "page", pageID)
	return &AddWidgetResult{ShapeID: shapeID, WidgetID: widgetID, TemplateID: templateID}, nil
}

// EditWidgetHTML substitutes placeholders in the submitted html against the
// widget's current storage, sanitizes the substituted result, stores it,
// and clears storage unless PreserveStorage is set. Substitution runs
// exactly once, here; reads return the stored text as-is. Sanitization runs
// after substitution so markup smuggled in through storage values is
// stripped before it is persisted.
func (s *Service) EditWidgetHTML(ctx context.Context, roomID string, params EditHTMLParams) (*EditHTMLResult, error) {
	if params.HTML == "" {
		return nil, ErrMissingHTML
	}
	rm, err := s.rooms.Acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if ContainsScript(params.HTML) {
		s.logger.Warn("widget: script stripped from submitted html", "room", rm.ID(), "shape", params.ShapeID)
	}

	var substituted string
	err = updateWidget(rm.Store(), params.ShapeID, func(sh *record.Shape) error {
		substituted = Sanitize(Substitute(params.HTML, storageOf(sh.Props)))
		sh.Props[record.PropHTML] = substituted
		if !params.PreserveStorage {
			sh.Props[record.PropStorage] = map[string]string{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &EditHTMLResult{ShapeID: params.ShapeID, HTML: substituted}, nil
}

// UpdateWidgetStorage writes the widget's key-value storage. Merge performs
// a key-wise union where incoming keys win; otherwise storage is replaced
// wholesale. Returns the keys written, sorted.
func (s *Service) UpdateWidgetStorage(ctx context.Context, roomID string, params UpdateStorageParams) (*UpdateStorageResult, error) {
	rm, err := s.rooms.Acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	err = updateWidget(rm.Store(), params.ShapeID, func(sh *record.Shape) error {
		next := make(map[string]string, len(params.Data))
		if params.Merge {
			for k, v := range storageOf(sh.Props) {
				next[k] = v
			}
		}
		for k, v := range params.Data {
			next[k] = v
		}
		sh.Props[record.PropStorage] = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(params.Data))
	for k := range params.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &UpdateStorageResult{ShapeID: params.ShapeID, Keys: keys}, nil
}

// GenerateWidget produces widget html from a prompt via keyword heuristics.
// With AutoAdd it also places the widget, always under GeneratedTemplateID
// regardless of which template the heuristics matched. The pageId fallback
// hazard of AddWidget applies here too.
func (s *Service) GenerateWidget(ctx context.Context, roomID string, params GenerateParams) (*GenerateResult, error) {
	if params.Prompt == "" {
		return nil, ErrMissingPrompt
	}
	rm, err := s.rooms.Acquire(ctx, roomID)
	if err != nil {
		return nil, err
	}
	_, html, _ := HeuristicGenerate(s.catalog, params.Prompt, params.Style)
	html = Sanitize(html)

	out := &GenerateResult{HTML: html, TemplateID: GeneratedTemplateID}
	if params.AutoAdd {
		added, err := s.placeWidget(rm, GeneratedTemplateID, html, params.PageID, params.Position, nil)
		if err != nil {
			return nil, err
		}
		out.ShapeID = added.ShapeID
		out.WidgetID = added.WidgetID
	}
	return out, nil
}

// updateWidget runs fn against the widget shape with the given id inside a
// store update. Missing ids and non-widget shapes both report
// ErrWidgetNotFound.
func updateWidget(store *record.Store, shapeID string, fn func(*record.Shape) error) error {
	if shapeID == "" {
		return ErrWidgetNotFound
	}
	err := store.Update(shapeID, func(rec record.Record) error {
		sh, ok := rec.(*record.Shape)
		if !ok || !sh.IsWidget() {
			return ErrWidgetNotFound
		}
		return fn(sh)
	})
	if errors.Is(err, record.ErrNotFound) {
		return ErrWidgetNotFound
	}
	return err
}

// storageOf coerces a widget's storage prop into map[string]string. The
// prop arrives as map[string]string when built in-process and as
// map[string]any after a JSON round-trip; both pass schema validation.
func storageOf(props map[string]any) map[string]string {
	switch m := props[record.PropStorage].(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return map[string]string{}
	}
}

func propString(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func propNumber(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
