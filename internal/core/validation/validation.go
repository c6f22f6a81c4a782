// Package validation holds the input rules for every account form. Checks are
// pure: no I/O, no clock.
package validation

import (
	"errors"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

type SignIn struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type SignUp struct {
	Name            string `json:"name" form:"name" validate:"required,min=2"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,eqfield=Password"`
}

type Profile struct {
	Email string `json:"email" form:"email" validate:"required,email"`
	Name  string `json:"name" form:"name" validate:"required,min=2"`
	Image string `json:"image" form:"image" validate:"omitempty,http_url"`
}

type RequestPassword struct {
	Email      string `json:"email" form:"email" validate:"required,email"`
	RedirectTo string `json:"redirectTo" form:"redirectTo"`
}

type ResetPassword struct {
	Token           string `json:"token" form:"token" validate:"required"`
	Password        string `json:"newPassword" form:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"omitempty,eqfield=Password"`
}

func (in SignIn) Validate() error          { return Struct(in) }
func (in RequestPassword) Validate() error { return Struct(in) }
func (in ResetPassword) Validate() error   { return Struct(in) }

// Names are checked as they will be stored, without surrounding spaces.
func (in SignUp) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return Struct(in)
}

func (in Profile) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return Struct(in)
}

// Errors maps a field's wire name to its messages.
type Errors struct {
	Fields map[string][]string `json:"fields"`
}

func (e *Errors) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return strings.Join(parts, "; ")
}

func (e *Errors) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *Errors) Has(field string) bool {
	return e != nil && len(e.Fields[field]) > 0
}

// First returns the first message recorded for field, or "". It is safe on
// a nil receiver so templates can call it unconditionally.
func (e *Errors) First(field string) string {
	if e == nil {
		return ""
	}
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e *Errors) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates any tagged struct and returns nil or *Errors keyed by the
// JSON field names.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	out := &Errors{}
	for _, fe := range ve {
		out.Add(fe.Field(), message(fe))
	}
	return out.orNil()
}

// AsErrors unwraps err into *Errors.
func AsErrors(err error) (*Errors, bool) {
	var ve *Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NormalizeEmail lowercases and trims an address. Addresses are compared in
// this form everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Update checks the optional fields of a partial profile write.
func Update(name, image *string) error {
	out := &Errors{}
	if name != nil {
		if err := validate.Var(strings.TrimSpace(*name), "required,min=2"); err != nil {
			out.Add("name", nameMessage(err))
		}
	}
	if image != nil && *image != "" {
		if err := validate.Var(*image, "http_url"); err != nil {
			out.Add("image", messages["image.http_url"])
		}
	}
	return out.orNil()
}

// HostAllowed reports whether rawURL is an https URL on one of hosts. An
// entry of the form "*.example.com" matches any subdomain of example.com.
func HostAllowed(rawURL string, hosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if suffix, ok := strings.CutPrefix(h, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == h {
			return true
		}
	}
	return false
}

// UnderOrigin reports whether rawURL lives below one of origins, each a base
// URL such as "http://localhost:9000/avatars". Scheme and host must match
// exactly and the path must continue the origin's path.
func UnderOrigin(rawURL string, origins []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	for _, o := range origins {
		base, err := url.Parse(strings.TrimRight(o, "/"))
		if err != nil || base.Host == "" {
			continue
		}
		if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
			continue
		}
		if strings.HasPrefix(u.Path, base.Path+"/") {
			return true
		}
	}
	return false
}

func nameMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 && ve[0].Tag() == "required" {
		return messages["name.required"]
	}
	return messages["name.min"]
}
