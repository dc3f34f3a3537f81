// Package view renders the HTML partials of the import pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates
var embedded embed.FS

// Partial names.
const (
	CSVImportForm   = "csvimport/form.html"
	CSVImportReport = "csvimport/report.html"
	CSVImportError  = "csvimport/error.html"
)

// Renderer loads partials from a file system. Templates are parsed on every
// call so edits to a directory-backed FS show up without a restart.
type Renderer struct {
	fsys fs.FS
}

// New returns a renderer reading partials from fsys.
func New(fsys fs.FS) *Renderer {
	return &Renderer{fsys: fsys}
}

// Default returns a renderer over the built-in partials.
func Default() *Renderer {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return New(sub)
}

// Load renders the partial name with data as its dot.
func (r *Renderer) Load(name string, data map[string]any) (string, error) {
	src, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return "", fmt.Errorf("file not found or not readable for view %s: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(Funcs()).Parse(string(src))
	if err != nil {
		return "", fmt.Errorf("parse view %s: %w", name, err)
	}

	if data == nil {
		data = map[string]any{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render view %s: %w", name, err)
	}
	return buf.String(), nil
}

// Funcs are the helpers available to partials.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"required":           required,
		"toGenericHTML":      ToGenericHTML,
		"toGenericHTMLTable": ToGenericHTMLTable,
		"nl2br":              NL2BR,
	}
}

// required returns data[key], failing the render when it is missing.
func required(data map[string]any, key, usage string) (any, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return nil, fmt.Errorf("Usage: You must provide a variable named: %q with value: %s", key, usage)
	}
	return v, nil
}
