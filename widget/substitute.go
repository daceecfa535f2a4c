// CLAUDE:SUMMARY Template substitution: replace {{namespace:key}} placeholders from a widget's storage map.
package widget

import "regexp"

// placeholderRe matches well-formed {{namespace:key}} placeholders. Both
// tokens are word-shaped; anything else (unbalanced braces, missing colon,
// spaces inside tokens) is left verbatim.
var placeholderRe = regexp.MustCompile(`\{\{\s*[A-Za-z0-9_.-]+\s*:\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Substitute replaces every {{namespace:key}} placeholder in html with
// storage[key], or the empty string when the key is absent. The namespace
// token is matched but not consulted. Malformed placeholder syntax passes
// through unchanged.
//
// Substitution is idempotent only while the referenced keys are absent;
// once a value containing placeholder-like text has been filled in, a
// second pass would substitute again. EditWidgetHTML therefore applies it
// exactly once per edit, never at read time.
func Substitute(html string, storage map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(html, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		return storage[key]
	})
}
