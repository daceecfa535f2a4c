// CLAUDE:SUMMARY Sentinel errors for the widget tool service: missing inputs, unknown widget.
package widget

import "errors"

// ErrMissingTemplateID is returned when add_widget is called without a
// template id.
var ErrMissingTemplateID = errors.New("widget: templateId is required")

// ErrMissingHTML is returned when edit_widget_html is called without html
// content.
var ErrMissingHTML = errors.New("widget: htmlContent is required")

// ErrMissingPrompt is returned when generate_widget is called without a
// prompt.
var ErrMissingPrompt = errors.New("widget: prompt is required")

// ErrWidgetNotFound is returned when the referenced shape id does not name
// an existing widget shape.
var ErrWidgetNotFound = errors.New("widget: no widget with that shape id")
