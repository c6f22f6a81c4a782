// Package views renders the server-side pages with html/template.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/validation"
)

const (
	PageHome            = "home"
	PageSignIn          = "sign_in"
	PageSignUp          = "sign_up"
	PageUpdateProfile   = "update_profile"
	PageRequestPassword = "request_password"
	PageResetPassword   = "reset_password"
)

//go:embed templates/*.html
var templateFS embed.FS

// Flash is a one-shot notification carried across a redirect.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Page is the data every template receives.
type Page struct {
	Title     string
	AppName   string
	Flash     *Flash
	Session   *domain.Session
	Errors    *validation.Errors
	Form      map[string]string
	Profile   domain.Profile
	Providers []string
	Token     string
}

// Value returns the submitted value of a form field.
func (p Page) Value(field string) string {
	return p.Form[field]
}

// Renderer implements echo.Renderer. Each page is parsed together with the
// layout into its own set so block names do not collide.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	funcs := template.FuncMap{
		"initial": initial,
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		page := strings.TrimSuffix(path.Base(name), ".html")
		if page == "layout" {
			continue
		}
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("views: unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "?"
	}
	return strings.ToUpper(string([]rune(name)[0]))
}
