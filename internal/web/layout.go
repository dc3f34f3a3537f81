package web

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/etl/internal/logging"
)

// Page shell values.
const (
	pageTitle = "ETL"
	menuLabel = "Importation CSV"
	menuPath  = "/csvimport"
)

const shellStyle = `body{font-family:sans-serif;margin:0}` +
	`nav{background:#2f3f64;padding:.6em 1em}nav a{color:#fff;text-decoration:none}` +
	`main{padding:1em}.plugin-etl__error{color:#a40000}` +
	`.plugin-etl__error-msg td{vertical-align:top;padding-right:1em}`

// Layout wraps the rendered partials in the page shell.
func Layout(title string, partials []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<!DOCTYPE html><html lang="fr"><head><meta charset="utf-8"/>` +
			`<title>` + templ.EscapeString(title) + `</title>` +
			`<style>` + shellStyle + `</style></head><body>` +
			`<nav><a href="` + menuPath + `">` + templ.EscapeString(menuLabel) + `</a></nav><main>`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := templ.Raw(strings.Join(partials, "\n")).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// renderPage writes the partials inside the page shell.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, partials []string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := Layout(pageTitle, partials).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}
