package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// messages is keyed by "<field>.<tag>".
var messages = map[string]string{
	"email.required":           "Enter a valid email address",
	"email.email":              "Enter a valid email address",
	"password.required":        "Enter your password",
	"password.min":             "Password must be at least 8 characters",
	"newPassword.required":     "Enter a new password",
	"newPassword.min":          "Password must be at least 8 characters",
	"confirmPassword.required": "Confirm your password",
	"confirmPassword.eqfield":  "Passwords do not match",
	"name.required":            "Enter your name",
	"name.min":                 "Name must be at least 2 characters",
	"image.http_url":           "Image must be an http(s) URL",
	"token.required":           "Reset link is missing its token",
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
