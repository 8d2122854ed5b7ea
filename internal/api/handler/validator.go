package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultPasswordMinLength applies when PasswordPolicy.MinLength is zero.
	DefaultPasswordMinLength = 8
	// passwordMaxBytes is the bcrypt input limit.
	passwordMaxBytes = 72
)

// PasswordPolicy configures the "password" validation tag.
type PasswordPolicy struct {
	MinLength int
	// RequireMixed demands at least one lowercase letter, uppercase letter,
	// digit and symbol.
	RequireMixed bool
}

// Satisfied reports whether pw meets the policy.
func (p PasswordPolicy) Satisfied(pw string) bool {
	if utf8.RuneCountInString(pw) < p.minLength() || len(pw) > passwordMaxBytes {
		return false
	}
	if !p.RequireMixed {
		return true
	}

	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

func (p PasswordPolicy) minLength() int {
	if p.MinLength <= 0 {
		return DefaultPasswordMinLength
	}
	return p.MinLength
}

func (p PasswordPolicy) describe(field string) string {
	msg := fmt.Sprintf("%s must be between %d characters and %d bytes long", field, p.minLength(), passwordMaxBytes)
	if p.RequireMixed {
		msg += " and contain a lowercase letter, an uppercase letter, a digit and a symbol"
	}
	return msg
}

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v      *validator.Validate
	policy PasswordPolicy
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator(policy PasswordPolicy) *echoValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON (or query) names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})

	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return policy.Satisfied(fl.Field().String())
	})

	return &echoValidator{v: v, policy: policy}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, ev.fieldError(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// fieldError converts a single ValidationError into a human-readable message.
func (ev *echoValidator) fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "password":
		return ev.policy.describe(field)
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
