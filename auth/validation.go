package auth

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-learner-session/identity"
)

// formError turns struct validation failures into the form warning. Missing
// fields are reported before mismatches.
func formError(op string, err error, missingMsg string) error {
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return identity.NewError(identity.KindValidation, op, err.Error(), err)
	}
	for _, fieldErr := range validationErrs {
		if fieldErr.Tag() == "required" {
			return identity.NewError(identity.KindValidation, op, missingMsg, err)
		}
	}
	for _, fieldErr := range validationErrs {
		if fieldErr.Tag() == "eqfield" {
			return identity.NewError(identity.KindValidation, op, MsgPasswordsDontMatch, err)
		}
	}
	return identity.NewError(identity.KindValidation, op, validationErrs[0].Error(), err)
}

func (s *Service) validateLogin(req *LoginRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	return formError("login", s.validate.Struct(req), MsgFillAllFields)
}

func (s *Service) validateSignUp(req *SignUpRequest) error {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	return formError("signUp", s.validate.Struct(req), MsgFillAllSignUpFields)
}
