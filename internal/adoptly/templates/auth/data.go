package auth

// LoginPageData encapsulates rendering state for the login screen.
type LoginPageData struct {
	Username     string
	FieldErrors  map[string]string
	ErrorMessage string
	Message      string
	CSRFToken    string
	Environment  string
	LoginPath    string
	GuestPath    string
	SignUpPath   string
}

// FieldError returns the message for the named field, if any.
func (d LoginPageData) FieldError(name string) string {
	if d.FieldErrors == nil {
		return ""
	}
	return d.FieldErrors[name]
}
