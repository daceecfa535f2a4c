// CLAUDE:SUMMARY Request/response payload types and the field-projection flag set for widget tools.
package widget

import "strings"

// PageIDAll is the sentinel echoed by ListWidgets when no page filter was
// applied.
const PageIDAll = "all"

// DefaultPagePlaceholder is the literal page reference written when
// AddWidget is called without a page id. It is NOT resolved against the
// room's actual pages; callers that want the true default page must resolve
// ListPages().DefaultPage themselves. See the AddWidget doc comment.
const DefaultPagePlaceholder = "page:canvas"

// GeneratedTemplateID is the template id stamped on widgets created by
// GenerateWidget with autoAdd.
const GeneratedTemplateID = "generated-widget"

// Position is a canvas coordinate pair.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a widget extent in canvas units.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Field is one optional projection in a ListWidgets result.
type Field uint8

const (
	FieldHTML Field = 1 << iota
	FieldStorage
	FieldPosition
	FieldSize
	FieldRaw
)

// FieldSet is a combination of projection flags.
type FieldSet uint8

// Has reports whether the set contains f.
func (s FieldSet) Has(f Field) bool { return uint8(s)&uint8(f) != 0 }

// ParseFields maps comma-separated field names to a FieldSet. Unknown names
// are silently ignored: field selection is advisory rendering, not schema
// validation. An empty input selects nothing beyond the always-on fields.
func ParseFields(raw string) FieldSet {
	var set FieldSet
	for _, name := range strings.Split(raw, ",") {
		switch strings.TrimSpace(name) {
		case "htmlContent":
			set |= FieldSet(FieldHTML)
		case "storage":
			set |= FieldSet(FieldStorage)
		case "position":
			set |= FieldSet(FieldPosition)
		case "size":
			set |= FieldSet(FieldSize)
		case "rawProperties":
			set |= FieldSet(FieldRaw)
		}
	}
	return set
}

// PageInfo is one page in a ListPages result.
type PageInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Index string `json:"index"`
}

// ListPagesResult is the list_pages payload.
type ListPagesResult struct {
	Pages       []PageInfo `json:"pages"`
	DefaultPage string     `json:"defaultPage,omitempty"`
}

// ListWidgetsParams selects and projects widgets.
type ListWidgetsParams struct {
	PageID string
	IDs    []string
	Fields string
}

// WidgetInfo is one widget in a ListWidgets result. ShapeID, WidgetID and
// TemplateID are always present; the rest follow the field projection.
type WidgetInfo struct {
	ShapeID    string            `json:"shapeId"`
	WidgetID   string            `json:"widgetId"`
	TemplateID string            `json:"templateId"`
	HTML       string            `json:"htmlContent,omitempty"`
	Storage    map[string]string `json:"storage,omitempty"`
	Position   *Position         `json:"position,omitempty"`
	Size       *Size             `json:"size,omitempty"`
	Raw        map[string]any    `json:"rawProperties,omitempty"`
}

// ListWidgetsResult is the list_widgets payload. PageID echoes the filter
// actually applied (PageIDAll when unfiltered).
type ListWidgetsResult struct {
	PageID  string       `json:"pageId"`
	Widgets []WidgetInfo `json:"widgets"`
}

// AddWidgetParams creates a widget from a template.
type AddWidgetParams struct {
	TemplateID string
	PageID     string
	Position   *Position
	Size       *Size
}

// AddWidgetResult is the add_widget payload.
type AddWidgetResult struct {
	ShapeID    string `json:"shapeId"`
	WidgetID   string `json:"widgetId"`
	TemplateID string `json:"templateId"`
}

// EditHTMLParams overwrites a widget's html content.
type EditHTMLParams struct {
	ShapeID         string
	HTML            string
	PreserveStorage bool
}

// EditHTMLResult carries the substituted html actually stored.
type EditHTMLResult struct {
	ShapeID string `json:"shapeId"`
	HTML    string `json:"htmlContent"`
}

// UpdateStorageParams writes a widget's key-value storage.
type UpdateStorageParams struct {
	ShapeID string
	Data    map[string]string
	Merge   bool
}

// UpdateStorageResult lists the keys written.
type UpdateStorageResult struct {
	ShapeID string   `json:"shapeId"`
	Keys    []string `json:"keysWritten"`
}

// GenerateParams produces widget html from a prompt.
type GenerateParams struct {
	Prompt   string
	Style    string
	PageID   string
	Position *Position
	AutoAdd  bool
}

// GenerateResult is the generate_widget payload. ShapeID and WidgetID are
// set only when AutoAdd placed the widget.
type GenerateResult struct {
	HTML       string `json:"htmlContent"`
	TemplateID string `json:"templateId"`
	ShapeID    string `json:"shapeId,omitempty"`
	WidgetID   string `json:"widgetId,omitempty"`
}
