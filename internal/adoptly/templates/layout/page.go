// Package layout renders the document shell shared by every screen.
package layout

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// HTMXScriptURL pins the htmx release the screens are written against.
const HTMXScriptURL = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// htmxConfig swaps the re-rendered form for validation (422), rejected
// login (401) and taken username (409) responses.
const htmxConfig = `{"responseHandling":[` +
	`{"code":"204","swap":false},` +
	`{"code":"[23]..","swap":true},` +
	`{"code":"401","swap":true},` +
	`{"code":"409","swap":true},` +
	`{"code":"422","swap":true},` +
	`{"code":"[45]..","swap":false,"error":true}]}`

// Page wraps body in the HTML document shell. The environment badge is
// hidden in Production.
func Page(title, environment string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fullTitle := "Adoptly"
		if strings.TrimSpace(title) != "" {
			fullTitle = title + " | Adoptly"
		}
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title><link rel="stylesheet" href="/public/static/app.css"><meta name="htmx-config" content='%s'><script src="%s" defer></script></head><body>`,
			templ.EscapeString(fullTitle),
			templ.EscapeString(htmxConfig),
			HTMXScriptURL,
		); err != nil {
			return err
		}
		if env := strings.TrimSpace(environment); env != "" && !strings.EqualFold(env, "Production") {
			if _, err := fmt.Fprintf(w, `<div class="env-badge" data-env="%[1]s">%[1]s</div>`, templ.EscapeString(env)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<main class="screen">`); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}
