package server

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldName reports fields by their wire name so messages match what clients sent.
func fieldName(field reflect.StructField) string {
	for _, tag := range []string{"json", "query", "form"} {
		name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}

	return field.Name
}

func NewValidator() (*validator.Validate, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(fieldName)

	// Verify that the string holds something other than whitespace.
	if err := validate.RegisterValidation("notBlank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		return nil, fmt.Errorf("validation registration for 'notBlank' failed: %w", err)
	}

	return validate, nil
}
