// CLAUDE:SUMMARY Typed canvas records (page, shape, binding) with a tagged-union JSON codec.
// Package record holds the canvas data model: the typed records that make up
// a room (pages, shapes, bindings), the in-memory Store that owns them, and
// the Snapshot projection used for persistence and reads.
package record

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the record union.
type Type string

const (
	TypePage    Type = "page"
	TypeShape   Type = "shape"
	TypeBinding Type = "binding"
)

// ShapeWidget is the shape type tag for widget shapes.
const ShapeWidget = "widget"

// Record is a single typed, identified entity stored in a room.
type Record interface {
	RecordID() string
	RecordType() Type
}

// Page is a canvas page. The default page is never flagged; it is derived at
// query time as the first page in store iteration order.
type Page struct {
	ID       string `json:"id"`
	TypeName Type   `json:"typeName"`
	Name     string `json:"name"`
	Index    string `json:"index"`
}

func (p *Page) RecordID() string { return p.ID }
func (p *Page) RecordType() Type { return TypePage }

// DisplayName returns the page name, defaulting to "Untitled" when absent.
func (p *Page) DisplayName() string {
	if p.Name == "" {
		return "Untitled"
	}
	return p.Name
}

// Shape is a positioned element owned by exactly one page at a time.
type Shape struct {
	ID       string         `json:"id"`
	TypeName Type           `json:"typeName"`
	Type     string         `json:"type"`
	ParentID string         `json:"parentId"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Props    map[string]any `json:"props"`
}

func (s *Shape) RecordID() string { return s.ID }
func (s *Shape) RecordType() Type { return TypeShape }

// IsWidget reports whether the shape is a widget shape.
func (s *Shape) IsWidget() bool { return s.Type == ShapeWidget }

// Binding relates two shapes. Carried through snapshots untouched; the core
// never interprets bindings.
type Binding struct {
	ID       string         `json:"id"`
	TypeName Type           `json:"typeName"`
	Type     string         `json:"type"`
	FromID   string         `json:"fromId"`
	ToID     string         `json:"toId"`
	Props    map[string]any `json:"props,omitempty"`
}

func (b *Binding) RecordID() string { return b.ID }
func (b *Binding) RecordType() Type { return TypeBinding }

// decodeRecord unmarshals one record envelope, dispatching on typeName.
func decodeRecord(data json.RawMessage) (Record, error) {
	var head struct {
		TypeName Type `json:"typeName"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("record: decode envelope: %w", err)
	}
	switch head.TypeName {
	case TypePage:
		var p Page
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("record: decode page: %w", err)
		}
		return &p, nil
	case TypeShape:
		var s Shape
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("record: decode shape: %w", err)
		}
		return &s, nil
	case TypeBinding:
		var b Binding
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("record: decode binding: %w", err)
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("record: unknown typeName %q", head.TypeName)
	}
}
