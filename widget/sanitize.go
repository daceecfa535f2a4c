// CLAUDE:SUMMARY HTML sanitization for widget markup: bluemonday UGC policy tuned to keep interactive attributes and template placeholders.
package widget

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// sanitizePolicy strips scripts and event handlers from widget html while
// keeping the structural and data- attributes widgets rely on. Placeholder
// text ({{ns:key}}) survives because bluemonday only rewrites markup, not
// text nodes.
var sanitizePolicy = newSanitizePolicy()

func newSanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("style").Globally()
	p.AllowAttrs("contenteditable").Globally()
	p.AllowDataAttributes()
	p.AllowElements("button", "input", "label", "select", "option", "textarea")
	p.AllowAttrs("type", "placeholder", "value", "checked", "disabled").OnElements("input")
	p.AllowAttrs("type", "disabled").OnElements("button")
	p.AllowAttrs("for").OnElements("label")
	p.AllowAttrs("selected").OnElements("option")
	return p
}

// scriptRe catches inline script tags case-insensitively so Sanitize can be
// asked whether stripping changed anything meaningful.
var scriptRe = regexp.MustCompile(`(?is)<script\b`)

// Sanitize returns markup with scripts, event handlers, and disallowed
// elements removed. Safe to call on already-sanitized html.
func Sanitize(markup string) string {
	return sanitizePolicy.Sanitize(markup)
}

// ContainsScript reports whether markup carries an inline script tag.
// Used for audit logging before sanitization rewrites it away.
func ContainsScript(markup string) bool {
	return scriptRe.MatchString(markup)
}
