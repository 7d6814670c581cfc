// Package home renders the main screen reached after login or guest bypass.
package home

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"adoptly.org/adoptly/internal/adoptly/templates/layout"
)

// MainPageData encapsulates rendering state for the main screen.
type MainPageData struct {
	DisplayName string
	Username    string
	Guest       bool
	CSRFToken   string
	Environment string
	LogoutPath  string
	LoginPath   string
}

// MainPage renders the main screen.
func MainPage(data MainPageData) templ.Component {
	return layout.Page("Home", data.Environment, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if data.Guest {
			_, err := fmt.Fprintf(w,
				`<section class="home" data-mode="guest"><h1>Welcome, guest</h1><p>Browse pets available for adoption. <a class="login-link" href="%s">Log in</a> to save favourites.</p></section>`,
				templ.EscapeString(data.LoginPath))
			return err
		}
		name := data.DisplayName
		if name == "" {
			name = data.Username
		}
		_, err := fmt.Fprintf(w,
			`<section class="home" data-mode="member" data-username="%s"><h1>Welcome back, %s</h1><form method="post" action="%s"><input type="hidden" name="csrf_token" value="%s"><button type="submit" class="button">Log out</button></form></section>`,
			templ.EscapeString(data.Username), templ.EscapeString(name), templ.EscapeString(data.LogoutPath), templ.EscapeString(data.CSRFToken))
		return err
	}))
}
