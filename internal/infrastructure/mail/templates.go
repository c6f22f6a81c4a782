// Package mail renders transactional emails and hands them to Resend.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	TemplateVerification  = "verification"
	TemplateResetPassword = "reset-password"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer builds the two account emails. It is safe for concurrent use.
type Renderer struct {
	verification  *template.Template
	resetPassword *template.Template
}

func NewRenderer() (*Renderer, error) {
	verification, err := template.ParseFS(templateFS, "templates/layout.html", "templates/verification.html")
	if err != nil {
		return nil, fmt.Errorf("parse verification template: %w", err)
	}
	reset, err := template.ParseFS(templateFS, "templates/layout.html", "templates/reset_password.html")
	if err != nil {
		return nil, fmt.Errorf("parse reset template: %w", err)
	}
	return &Renderer{verification: verification, resetPassword: reset}, nil
}

func (r *Renderer) Verification(data ports.VerificationEmail) (ports.EmailMessage, error) {
	html, err := execute(r.verification, data)
	if err != nil {
		return ports.EmailMessage{}, err
	}
	return ports.EmailMessage{
		Template: TemplateVerification,
		To:       data.To,
		Subject:  "Welcome to " + data.AppName,
		HTML:     html,
		Text: fmt.Sprintf("Hi %s,\n\nThank you for signing up for %s. Confirm your email address by opening the link below.\n\n%s\n",
			data.Name, data.AppName, data.URL),
	}, nil
}

func (r *Renderer) PasswordReset(data ports.PasswordResetEmail) (ports.EmailMessage, error) {
	html, err := execute(r.resetPassword, data)
	if err != nil {
		return ports.EmailMessage{}, err
	}
	return ports.EmailMessage{
		Template: TemplateResetPassword,
		To:       data.To,
		Subject:  "Reset your password for " + data.AppName,
		HTML:     html,
		Text: fmt.Sprintf("Hello,\n\nWe received a request to reset the password for the %s account associated with %s.\n\n%s\n\nIf you did not request a password reset, you can safely ignore this email.\n",
			data.AppName, data.To, data.URL),
	}, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
