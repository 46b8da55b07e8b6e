package response

import (
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

// TemplateRenderer renders html/template templates by name.
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses the templates matching patterns in fsys.
func NewTemplateRenderer(fsys fs.FS, patterns ...string) (*TemplateRenderer, error) {
	t, err := template.ParseFS(fsys, patterns...)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{templates: t}, nil
}

// NewTemplateRendererFrom wraps already parsed templates.
func NewTemplateRendererFrom(t *template.Template) *TemplateRenderer {
	return &TemplateRenderer{templates: t}
}

// Render executes the named template with data.
func (r *TemplateRenderer) Render(name string, data any) (string, error) {
	var b strings.Builder
	if err := r.templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
