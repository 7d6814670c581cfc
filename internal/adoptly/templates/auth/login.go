package auth

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"adoptly.org/adoptly/internal/adoptly/templates/layout"
)

// LoginPage renders the full login screen.
func LoginPage(data LoginPageData) templ.Component {
	return layout.Page("Log in", data.Environment, LoginForm(data))
}

// LoginForm renders the form fragment; htmx requests swap it in place.
func LoginForm(data LoginPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &printer{w: w}
		p.printf(`<section id="login" class="login"><h1 class="title">Adoptly 🐾</h1><h3 class="subtitle">Find Your Best Friend</h3>`)
		if data.Message != "" {
			p.printf(`<p class="login-message">%s</p>`, templ.EscapeString(data.Message))
		}
		p.printf(`<form id="login-form" class="login-form" method="post" action="%s" hx-post="%[1]s" hx-target="#login" hx-swap="outerHTML" novalidate>`,
			templ.EscapeString(data.LoginPath))
		p.csrf(data.CSRFToken)
		p.field("username", "Username", "text", data.Username, data.FieldError("username"))
		p.field("password", "Password", "password", "", data.FieldError("password"))
		p.printf(`<button type="submit" class="button button-primary">Login</button>`)
		if data.ErrorMessage != "" {
			p.printf(`<p class="login-error" role="alert">%s</p>`, templ.EscapeString(data.ErrorMessage))
		}
		if data.SignUpPath != "" {
			p.printf(`<div class="button-row"><button type="submit" class="button" formaction="%[1]s" hx-post="%[1]s">Sign Up</button></div>`,
				templ.EscapeString(data.SignUpPath))
		}
		p.printf(`</form>`)
		p.printf(`<form class="guest-form" method="post" action="%s">`, templ.EscapeString(data.GuestPath))
		p.csrf(data.CSRFToken)
		p.printf(`<button type="submit" class="button">Continue as Guest</button></form></section>`)
		return p.err
	})
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) csrf(token string) {
	if token == "" {
		return
	}
	p.printf(`<input type="hidden" name="csrf_token" value="%s">`, templ.EscapeString(token))
}

func (p *printer) field(name, label, inputType, value, fieldErr string) {
	p.printf(`<div class="field"><label for="%[1]s">%[2]s</label><input id="%[1]s" name="%[1]s" type="%[3]s" placeholder="%[1]s" value="%[4]s" autocomplete="%[5]s"`,
		name, label, inputType, templ.EscapeString(value), autocompleteFor(name))
	if fieldErr != "" {
		p.printf(` aria-invalid="true" aria-describedby="%s-error"`, name)
	}
	p.printf(`>`)
	if fieldErr != "" {
		p.printf(`<p id="%[1]s-error" class="field-error" data-field="%[1]s">%[2]s</p>`, name, templ.EscapeString(fieldErr))
	}
	p.printf(`</div>`)
}

func autocompleteFor(name string) string {
	if name == "password" {
		return "current-password"
	}
	return "username"
}
