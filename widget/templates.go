// CLAUDE:SUMMARY Template catalog: built-in widget templates plus optional YAML overrides, with a never-failing resolver.
package widget

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"
)

// Template is one entry in the widget template catalog.
type Template struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	HTML string `yaml:"html"`
}

// Catalog resolves template ids to html content. Resolve never fails: an
// unrecognized id falls back to generic placeholder markup.
type Catalog struct {
	templates map[string]Template
}

// fallbackHTML is served for unknown template ids.
const fallbackHTML = `<div class="toile-widget toile-widget-blank">
  <p>{{widget:title}}</p>
</div>`

var builtinTemplates = []Template{
	{
		ID:   "sticky-note",
		Name: "Sticky note",
		HTML: `<div class="toile-widget toile-note" style="background:#fef3c7;padding:12px">
  <p contenteditable="true">{{note:text}}</p>
</div>`,
	},
	{
		ID:   "counter",
		Name: "Counter",
		HTML: `<div class="toile-widget toile-counter">
  <button data-action="decrement">-</button>
  <span data-value>{{counter:value}}</span>
  <button data-action="increment">+</button>
</div>`,
	},
	{
		ID:   "timer",
		Name: "Timer",
		HTML: `<div class="toile-widget toile-timer">
  <span data-remaining>{{timer:duration}}</span>
  <button data-action="start">Start</button>
  <button data-action="reset">Reset</button>
</div>`,
	},
	{
		ID:   "todo-list",
		Name: "Todo list",
		HTML: `<div class="toile-widget toile-todo">
  <h3>{{todo:title}}</h3>
  <ul data-items></ul>
  <input type="text" placeholder="Add item" />
</div>`,
	},
}

// DefaultCatalog returns the built-in templates.
func DefaultCatalog() *Catalog {
	c := &Catalog{templates: make(map[string]Template, len(builtinTemplates))}
	for _, t := range builtinTemplates {
		c.templates[t.ID] = t
	}
	return c
}

// LoadCatalog reads a YAML template file and layers it over the built-ins
// (file entries win on id collision). Every template's markup must parse as
// an HTML fragment.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("widget: read catalog: %w", err)
	}
	var file struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("widget: parse catalog: %w", err)
	}

	c := DefaultCatalog()
	for _, t := range file.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("widget: catalog template without id")
		}
		if err := checkFragment(t.HTML); err != nil {
			return nil, fmt.Errorf("widget: template %s: %w", t.ID, err)
		}
		c.templates[t.ID] = t
	}
	return c, nil
}

// Resolve returns the html for templateID, or generic placeholder markup
// when the id is unrecognized. Never errors.
func (c *Catalog) Resolve(templateID string) string {
	if t, ok := c.templates[templateID]; ok {
		return t.HTML
	}
	return fallbackHTML
}

// Has reports whether templateID names a known template.
func (c *Catalog) Has(templateID string) bool {
	_, ok := c.templates[templateID]
	return ok
}

// IDs returns the known template ids.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	return ids
}

// checkFragment parses markup as a body fragment and rejects empty or
// text-only templates.
func checkFragment(markup string) error {
	if strings.TrimSpace(markup) == "" {
		return fmt.Errorf("empty html")
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return nil
		}
	}
	return fmt.Errorf("no element content")
}
