package login

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	// FieldUsername is the form field carrying the account identifier.
	FieldUsername = "username"
	// FieldPassword is the form field carrying the secret.
	FieldPassword = "password"

	// MessageRequired is shown next to an empty or whitespace-only field.
	MessageRequired = "required"
)

// Credentials is the username/password pair collected from the login form.
type Credentials struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// Trimmed returns a copy with surrounding whitespace removed from both fields.
func (c Credentials) Trimmed() Credentials {
	return Credentials{
		Username: strings.TrimSpace(c.Username),
		Password: strings.TrimSpace(c.Password),
	}
}

// FieldErrors maps a form field name onto the message rendered beside it.
// An empty map means the credentials passed validation.
type FieldErrors map[string]string

// Error implements the error interface so validation failures can travel
// through error returns.
func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation passed"
	}
	fields := make([]string, 0, len(fe))
	for name := range fe {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, name := range fields {
		parts = append(parts, name+": "+fe[name])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether the named field carries an error.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Valid reports whether no field failed.
func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

var (
	schemaOnce sync.Once
	schema     *validator.Validate
)

func credentialSchema() *validator.Validate {
	schemaOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		schema = v
	})
	return schema
}

// Validate checks credentials against the login schema: both fields are
// required once surrounding whitespace is trimmed. It never mutates its input.
func Validate(creds Credentials) FieldErrors {
	result := FieldErrors{}
	err := credentialSchema().Struct(creds.Trimmed())
	if err == nil {
		return result
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError only happens on programmer error; fail closed.
		result[FieldUsername] = MessageRequired
		result[FieldPassword] = MessageRequired
		return result
	}
	for _, fe := range verrs {
		if _, seen := result[fe.Field()]; seen {
			continue
		}
		result[fe.Field()] = messageFor(fe.Tag())
	}
	return result
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return MessageRequired
	default:
		return "invalid"
	}
}
