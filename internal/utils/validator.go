// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("username", validateUsername)
	validate.RegisterValidation("strong_password", validateStrongPassword)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateUsername(fl validator.FieldLevel) bool {
	username := fl.Field().String()
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_.-]{3,50}$`, username)
	return matched
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// GetValidationErrors flattens validator errors into field -> message.
func GetValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["_"] = err.Error()
		return errs
	}

	for _, fieldErr := range validationErrors {
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			errs[field] = "this field is required"
		case "email":
			errs[field] = "invalid email address"
		case "min":
			errs[field] = "value is too short"
		case "max":
			errs[field] = "value is too long"
		case "oneof":
			errs[field] = "value must be one of: " + fieldErr.Param()
		case "username":
			errs[field] = "username may contain letters, digits, dot, dash and underscore"
		case "strong_password":
			errs[field] = "password needs at least 8 characters with upper, lower and digit"
		default:
			errs[field] = "invalid value"
		}
	}
	return errs
}
