// CLAUDE:SUMMARY Record schema validation — structural checks before any write reaches the store.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every validation failure. Validation failures are
// fatal write failures, never retryable.
var ErrInvalid = errors.New("record: invalid")

// Widget prop keys. Storage values are always strings; a widget without
// storage is treated as storage = {}.
const (
	PropWidgetID   = "widgetId"
	PropTemplateID = "templateId"
	PropHTML       = "html"
	PropWidth      = "w"
	PropHeight     = "h"
	PropColor      = "color"
	PropStorage    = "storage"
)

var widgetPropKeys = map[string]bool{
	PropWidgetID:   true,
	PropTemplateID: true,
	PropHTML:       true,
	PropWidth:      true,
	PropHeight:     true,
	PropColor:      true,
	PropStorage:    true,
}

// Validate checks a record against the schema. Pages and shapes carry
// structural requirements; widget shapes additionally have a closed props
// contract. Bindings only need identity.
func Validate(rec Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrInvalid)
	}
	if rec.RecordID() == "" {
		return fmt.Errorf("%w: empty id", ErrInvalid)
	}

	switch v := rec.(type) {
	case *Page:
		if v.TypeName != TypePage {
			return fmt.Errorf("%w: page %s: typeName %q", ErrInvalid, v.ID, v.TypeName)
		}
	case *Shape:
		if v.TypeName != TypeShape {
			return fmt.Errorf("%w: shape %s: typeName %q", ErrInvalid, v.ID, v.TypeName)
		}
		if v.ParentID == "" {
			return fmt.Errorf("%w: shape %s: missing parentId", ErrInvalid, v.ID)
		}
		if v.IsWidget() {
			return validateWidgetProps(v)
		}
	case *Binding:
		if v.TypeName != TypeBinding {
			return fmt.Errorf("%w: binding %s: typeName %q", ErrInvalid, v.ID, v.TypeName)
		}
	default:
		return fmt.Errorf("%w: unknown record kind %T", ErrInvalid, rec)
	}
	return nil
}

func validateWidgetProps(sh *Shape) error {
	for _, key := range []string{PropWidgetID, PropTemplateID} {
		s, ok := sh.Props[key].(string)
		if !ok || s == "" {
			return fmt.Errorf("%w: widget %s: props.%s must be a non-empty string", ErrInvalid, sh.ID, key)
		}
	}
	if _, ok := sh.Props[PropHTML].(string); !ok {
		return fmt.Errorf("%w: widget %s: props.html must be a string", ErrInvalid, sh.ID)
	}
	for _, key := range []string{PropWidth, PropHeight} {
		if !isNumber(sh.Props[key]) {
			return fmt.Errorf("%w: widget %s: props.%s must be a number", ErrInvalid, sh.ID, key)
		}
	}
	if _, ok := sh.Props[PropColor].(string); !ok {
		return fmt.Errorf("%w: widget %s: props.color must be a string", ErrInvalid, sh.ID)
	}
	if raw, present := sh.Props[PropStorage]; present {
		if err := validateStorage(sh.ID, raw); err != nil {
			return err
		}
	}
	for key := range sh.Props {
		if !widgetPropKeys[key] {
			return fmt.Errorf("%w: widget %s: unknown props.%s", ErrInvalid, sh.ID, key)
		}
	}
	return nil
}

// isNumber accepts the numeric shapes a prop can arrive in: float64 from
// JSON decoding, int family from in-process construction.
func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	default:
		return false
	}
}

// validateStorage enforces flat string-to-string storage: no nested
// structures, every value a string.
func validateStorage(shapeID string, raw any) error {
	switch m := raw.(type) {
	case map[string]string:
		return nil
	case map[string]any:
		for k, v := range m {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: widget %s: storage[%s] must be a string", ErrInvalid, shapeID, k)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: widget %s: storage must be a string map", ErrInvalid, shapeID)
	}
}
