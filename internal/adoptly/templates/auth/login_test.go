package auth

import (
	"bytes"
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, data LoginPageData) *goquery.Document {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, LoginPage(data).Render(context.Background(), &buf))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestLoginPageRendersFormControls(t *testing.T) {
	t.Parallel()

	doc := render(t, LoginPageData{
		Username:    "A00000001",
		CSRFToken:   "token-123",
		Environment: "Development",
		LoginPath:   "/login",
		GuestPath:   "/login/guest",
		SignUpPath:  "/signup",
	})

	require.Equal(t, "Adoptly 🐾", doc.Find("h1.title").Text())
	require.Equal(t, "Find Your Best Friend", doc.Find("h3.subtitle").Text())

	username := doc.Find(`input[name="username"]`)
	require.Equal(t, 1, username.Length())
	value, _ := username.Attr("value")
	require.Equal(t, "A00000001", value)

	password := doc.Find(`input[name="password"]`)
	kind, _ := password.Attr("type")
	require.Equal(t, "password", kind)
	value, _ = password.Attr("value")
	require.Empty(t, value, "password must never be echoed back")

	require.Equal(t, 2, doc.Find(`input[name="csrf_token"][value="token-123"]`).Length())
	require.Equal(t, 1, doc.Find(`form.guest-form[action="/login/guest"]`).Length())
	require.Equal(t, 1, doc.Find(`button[formaction="/signup"][hx-post="/signup"]`).Length())
	form := doc.Find("form#login-form")
	hxPost, _ := form.Attr("hx-post")
	require.Equal(t, "/login", hxPost)
	hxTarget, _ := form.Attr("hx-target")
	require.Equal(t, 1, doc.Find(hxTarget).Length(), "htmx target must exist in the page")
	require.Equal(t, "Development", doc.Find(".env-badge").Text())

	require.Zero(t, doc.Find(".field-error").Length())
	require.Zero(t, doc.Find(".login-error").Length())
}

func TestLoginPageRendersErrors(t *testing.T) {
	t.Parallel()

	doc := render(t, LoginPageData{
		FieldErrors:  map[string]string{"password": "required"},
		ErrorMessage: "Login error, try again or continue as guest",
		Environment:  "Production",
	})

	require.Equal(t, "required", doc.Find(`.field-error[data-field="password"]`).Text())
	require.Zero(t, doc.Find(`.field-error[data-field="username"]`).Length())
	invalid, _ := doc.Find(`input[name="password"]`).Attr("aria-invalid")
	require.Equal(t, "true", invalid)

	require.Equal(t, "Login error, try again or continue as guest", doc.Find(".login-error").Text())
	require.Zero(t, doc.Find(".env-badge").Length(), "production hides the badge")
}

func TestLoginPageEscapesUsername(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, LoginForm(LoginPageData{Username: `"><script>alert(1)</script>`}).Render(context.Background(), &buf))
	require.NotContains(t, buf.String(), "<script>")
}
