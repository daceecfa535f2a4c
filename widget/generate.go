// CLAUDE:SUMMARY Heuristic widget generation: keyword routing from a prompt to a template, no model call in the loop.
package widget

import "strings"

// generationRoute maps prompt keywords to a catalog template. First match
// wins, in declaration order.
type generationRoute struct {
	keywords   []string
	templateID string
	title      string
}

var generationRoutes = []generationRoute{
	{keywords: []string{"counter", "count", "tally"}, templateID: "counter", title: "Counter"},
	{keywords: []string{"timer", "countdown", "stopwatch", "pomodoro"}, templateID: "timer", title: "Timer"},
	{keywords: []string{"todo", "to-do", "task", "checklist"}, templateID: "todo-list", title: "Todo list"},
	{keywords: []string{"note", "sticky", "memo", "reminder"}, templateID: "sticky-note", title: "Note"},
}

// HeuristicGenerate produces widget markup from a free-form prompt by
// keyword-matching against the catalog. Prompts that match no route get the
// generic placeholder under GeneratedTemplateID. The returned html is not
// yet substituted or sanitized; the service pipeline does both.
func HeuristicGenerate(catalog *Catalog, prompt, style string) (templateID, html, title string) {
	lower := strings.ToLower(prompt)
	for _, route := range generationRoutes {
		for _, kw := range route.keywords {
			if strings.Contains(lower, kw) {
				return route.templateID, applyStyle(catalog.Resolve(route.templateID), style), route.title
			}
		}
	}
	title = promptTitle(prompt)
	return GeneratedTemplateID, applyStyle(generatedHTML(title), style), title
}

func generatedHTML(title string) string {
	var b strings.Builder
	b.WriteString(`<div class="toile-widget toile-generated">` + "\n")
	b.WriteString("  <h3>")
	b.WriteString(escapeText(title))
	b.WriteString("</h3>\n")
	b.WriteString(`  <p>{{generated:body}}</p>` + "\n")
	b.WriteString("</div>")
	return b.String()
}

// applyStyle folds a requested style into the outer element's class list.
// Styles are advisory; unknown values pass through as a class name.
func applyStyle(markup, style string) string {
	style = strings.TrimSpace(strings.ToLower(style))
	if style == "" {
		return markup
	}
	cls := "toile-style-" + strings.ReplaceAll(style, " ", "-")
	return strings.Replace(markup, `class="toile-widget`, `class="toile-widget `+cls, 1)
}

// promptTitle trims a prompt to a short display title.
func promptTitle(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "Widget"
	}
	words := strings.Fields(prompt)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
