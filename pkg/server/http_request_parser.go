package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"github.com/equipviz/equipviz/pkg/contract"
)

type HTTPRequestParser struct {
	validator *validator.Validate
}

func NewHTTPRequestParser() (*HTTPRequestParser, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}

	return &HTTPRequestParser{
		validator: v,
	}, nil
}

var _ contract.HTTPRequestParser = (*HTTPRequestParser)(nil)

func (p *HTTPRequestParser) ParseBody(ctx *fiber.Ctx, input interface{}) *contract.Error {
	if err := ctx.BodyParser(input); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			result := gjson.GetBytes(ctx.Body(), typeErr.Field)
			value := result.Str
			if value == "" {
				value = result.Raw
			}
			if value == "" {
				value = typeErr.Value
			}

			return contract.NewError(
				contract.ErrorCode_INVALID_PARAMETER_VALUE,
				fmt.Sprintf("Invalid value %s for parameter '%s'", value, typeErr.Field),
			)
		}

		return contract.NewError(contract.ErrorCode_BAD_REQUEST, err.Error())
	}

	if err := p.validator.Struct(input); err != nil {
		return newErrorFromValidationError(err)
	}

	return nil
}

func (p *HTTPRequestParser) ParseQuery(ctx *fiber.Ctx, input interface{}) *contract.Error {
	if err := ctx.QueryParser(input); err != nil {
		return contract.NewError(contract.ErrorCode_INVALID_PARAMETER_VALUE, err.Error())
	}

	if err := p.validator.Struct(input); err != nil {
		return newErrorFromValidationError(err)
	}

	return nil
}

func dereference(value interface{}) interface{} {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		return v.Elem().Interface()
	}

	return value
}

func newErrorFromValidationError(err error) *contract.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return contract.NewErrorWith(contract.ErrorCode_INTERNAL_ERROR, "request validation failed", err)
	}

	validationErrors := make([]string, 0, len(errs))
	for _, err := range errs {
		field := err.Field()
		value := dereference(err.Value())

		var vErr string
		switch err.Tag() {
		case "required", "notBlank":
			vErr = fmt.Sprintf("Missing value for required parameter '%s'", field)
		default:
			vErr = fmt.Sprintf("Invalid value %v for parameter '%s' supplied", value, field)
		}
		validationErrors = append(validationErrors, vErr)
	}

	return contract.NewError(contract.ErrorCode_INVALID_PARAMETER_VALUE, strings.Join(validationErrors, ", "))
}
