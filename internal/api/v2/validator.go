package api

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/plantcare-go/plantcare/internal/errors"
)

const (
	msgInvalidEmail = "Invalid email format."
	msgWeakPassword = "Password is too weak. It must be at least 8 chars, contain uppercase, lowercase, number and special char."
)

const minPasswordLength = 8

var (
	emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

	passwordRules = []*regexp.Regexp{
		regexp.MustCompile(`[A-Z]`),
		regexp.MustCompile(`[a-z]`),
		regexp.MustCompile(`\d`),
		regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`),
	}
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// StrongPassword requires eight characters with upper and lower case
// letters, a digit and a special character.
func StrongPassword(s string) bool {
	if len(s) < minPasswordLength {
		return false
	}
	for _, rule := range passwordRules {
		if !rule.MatchString(s) {
			return false
		}
	}
	return true
}

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator registers the custom tags "email_format" and
// "password_strength" and reports fields by their JSON names.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("email_format", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	return &RequestValidator{validate: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
	if err := rv.validate.Struct(i); err != nil {
		return badRequest(validationMessage(err), err)
	}
	return nil
}

// validationMessage describes the first failed field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "email_format":
		return msgInvalidEmail
	case "password_strength":
		return msgWeakPassword
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
