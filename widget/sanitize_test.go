package widget

import (
	"strings"
	"testing"
)

// WHAT: scripts and event handlers are stripped from widget html.
// WHY: widget markup is agent- or user-supplied and rendered in every
// connected client.
func TestSanitizeStripsScripts(t *testing.T) {
	in := `<div class="w"><script>alert(1)</script><p onclick="steal()">hi</p></div>`
	out := Sanitize(in)

	if strings.Contains(out, "<script") {
		t.Fatalf("script survived: %q", out)
	}
	if strings.Contains(out, "onclick") {
		t.Fatalf("event handler survived: %q", out)
	}
	if !strings.Contains(out, "hi") {
		t.Fatalf("text content lost: %q", out)
	}
}

// WHAT: the attributes widgets rely on survive sanitization.
func TestSanitizeKeepsWidgetAttributes(t *testing.T) {
	in := `<div class="toile-widget" style="background:#fef3c7" data-value="3">` +
		`<button data-action="increment" type="button">+</button>` +
		`<input type="text" placeholder="Add item" />` +
		`<p contenteditable="true">note</p></div>`
	out := Sanitize(in)

	for _, want := range []string{"class=", "style=", "data-value", "data-action", "<button", "<input", "placeholder=", "contenteditable"} {
		if !strings.Contains(out, want) {
			t.Fatalf("sanitization dropped %s: %q", want, out)
		}
	}
}

// WHAT: template placeholders pass through untouched.
// WHY: substitution runs after sanitization; mangled placeholders would
// never resolve.
func TestSanitizePreservesPlaceholders(t *testing.T) {
	in := `<p>{{note:text}} and {{ counter:value }}</p>`
	out := Sanitize(in)

	if !strings.Contains(out, "{{note:text}}") {
		t.Fatalf("placeholder mangled: %q", out)
	}
	if !strings.Contains(out, "{{ counter:value }}") {
		t.Fatalf("spaced placeholder mangled: %q", out)
	}
}

// WHAT: sanitization is idempotent.
func TestSanitizeIdempotent(t *testing.T) {
	in := `<div class="w"><button data-action="x">go</button></div>`
	once := Sanitize(in)
	twice := Sanitize(once)
	if once != twice {
		t.Fatalf("not idempotent: %q vs %q", once, twice)
	}
}

// WHAT: script detection for audit logging.
func TestContainsScript(t *testing.T) {
	if !ContainsScript(`<SCRIPT src="x"></SCRIPT>`) {
		t.Fatalf("case-insensitive detection failed")
	}
	if ContainsScript(`<p>a description of scripts</p>`) {
		t.Fatalf("false positive on plain text")
	}
}
