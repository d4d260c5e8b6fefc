package auth

import (
	"unicode"

	"parley/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Handle   string `validate:"required,min=3,max=32,excludesall= "`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// ValidateRegister checks structural rules first, then password complexity,
// so the expensive hash only runs on inputs worth hashing.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func isPasswordComplex(s string) bool {
	var hasUpper, hasLower, hasNumber bool
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	return hasUpper && hasLower && hasNumber
}
