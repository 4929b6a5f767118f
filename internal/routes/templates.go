package routes

import (
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"shollu-partner/internal/export"

	"github.com/gin-contrib/multitemplate"
)

const (
	layoutTemplate   = "templates/layouts/base.html.tmpl"
	partialsTemplate = "templates/partials/*.html.tmpl"
	pagesDir         = "templates/pages"
)

// TemplateFuncs returns the helpers available to every page.
func TemplateFuncs(fsys fs.FS) template.FuncMap {
	sri := newAssetSRI(fsys)
	return template.FuncMap{
		"script_tag": sri.ScriptTag,
		"url": func(base, p string) string {
			return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
		},
		"gender": export.GenderLabel,
		"inc":    func(i int) int { return i + 1 },
		"add":    func(a, b int) int { return a + b },
		"number": func(id any) string { return fmt.Sprint(id) },
		"initial": func(name string) string {
			name = strings.TrimSpace(name)
			if name == "" {
				return "?"
			}
			return strings.ToUpper(string([]rune(name)[0]))
		},
		"dash": func(s string) string {
			if strings.TrimSpace(s) == "" {
				return "-"
			}
			return s
		},
	}
}

// Templates parses every page against the shared layout and partials.
func Templates(fsys fs.FS) (multitemplate.Render, error) {
	r := multitemplate.New()
	pages, err := fs.Glob(fsys, pagesDir+"/*.html.tmpl")
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates under %s", pagesDir)
	}
	funcs := TemplateFuncs(fsys)
	for _, page := range pages {
		name := path.Base(page)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(fsys, layoutTemplate, partialsTemplate, page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.Add(name, tmpl)
	}
	return r, nil
}
