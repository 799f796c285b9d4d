package service

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/corvid-labs/auth-service/internal/domain"
	apperrors "github.com/corvid-labs/auth-service/pkg/util/errorutil"
)

type registerPayload struct {
	Name     string `json:"name" validate:"min=2,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"min=8,max=100,password_complexity"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

var fieldLabels = map[string]string{
	"name":     "Name",
	"email":    "Email",
	"password": "Password",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("password_complexity", func(fl validator.FieldLevel) bool {
		return hasPasswordComplexity(fl.Field().String())
	})
	return v
}

// hasPasswordComplexity requires a lowercase letter, an uppercase letter and a digit.
func hasPasswordComplexity(password string) bool {
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// normalizeEmail is applied before every lookup and insert.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) validateRegister(in RegisterInput) (registerPayload, domain.Role, error) {
	payload := registerPayload{
		Name:     strings.TrimSpace(in.Name),
		Email:    normalizeEmail(in.Email),
		Password: strings.TrimSpace(in.Password),
	}

	fields := apperrors.FieldErrors{}
	collectFieldErrors(s.validate.Struct(payload), fields)

	role := s.defaultRole
	if in.Role != nil {
		requested := domain.Role(strings.ToUpper(strings.TrimSpace(*in.Role)))
		if !requested.Assignable() {
			fields.Add("role", fmt.Sprintf("Role must be one of %s, %s", domain.RoleVicePresident, domain.RoleMember))
		} else {
			role = requested
		}
	}

	if len(fields) > 0 {
		return registerPayload{}, "", apperrors.NewValidationError(fields)
	}
	return payload, role, nil
}

func (s *AuthService) validateLogin(in LoginInput) (loginPayload, error) {
	payload := loginPayload{
		Email:    normalizeEmail(in.Email),
		Password: in.Password,
	}

	fields := apperrors.FieldErrors{}
	collectFieldErrors(s.validate.Struct(payload), fields)
	if len(fields) > 0 {
		return loginPayload{}, apperrors.NewValidationError(fields)
	}
	payload.Password = strings.TrimSpace(payload.Password)
	return payload, nil
}

func collectFieldErrors(err error, fields apperrors.FieldErrors) {
	if err == nil {
		return
	}
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields.Add("_", err.Error())
		return
	}
	for _, fe := range validationErrs {
		fields.Add(fe.Field(), fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", label, fe.Param())
	case "password_complexity":
		return "Password must contain at least one lowercase letter, one uppercase letter, and one number"
	}
	return label + " is invalid"
}
