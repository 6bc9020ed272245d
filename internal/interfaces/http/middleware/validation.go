package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes binding errors name fields the way clients send them:
// the json tag, falling back to the form tag for query structs.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := tagName(f, "json")
		if name == "-" {
			return ""
		}
		if name == "" {
			name = tagName(f, "form")
		}
		return name
	})
}

func tagName(f reflect.StructField, key string) string {
	name, _, _ := strings.Cut(f.Tag.Get(key), ",")
	return name
}

// FormatValidationErrors builds the 400 body for a bind failure. Errors that
// are not field violations (broken JSON, wrong types) carry no details.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return dto.NewValidationErrorResponse("Malformed request body", requestID, nil)
	}

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: describe(fe)})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError aborts the request with a validation response
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

func describe(fe validator.FieldError) string {
	bound := fe.Param()
	if fe.Kind() == reflect.String {
		bound += " characters"
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Must be at least " + bound
	case "max":
		return "Must be at most " + bound
	case "oneof":
		return "Must be one of: " + fe.Param()
	}
	return "Invalid value"
}
