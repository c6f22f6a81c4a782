package handler

import (
	"github.com/99minutos/account-service/internal/core/validation"
)

// echoValidator lets Echo call c.Validate(req) with the shared validation
// rules, so field errors carry the same names and messages everywhere.
type echoValidator struct{}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{}
}

// Validate satisfies the echo.Validator interface. Failures are
// *validation.Errors.
func (ev *echoValidator) Validate(i any) error {
	return validation.Struct(i)
}
