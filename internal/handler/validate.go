package handler

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// phonePattern accepts digits plus the separators customers actually type
// into the intake form (spaces, dashes, parentheses, leading +).
var phonePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// validationResponse turns validator errors into the 400 payload the
// frontend renders next to each field.
func validationResponse(c echo.Context, err error) error {
	fields := []echo.Map{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, echo.Map{
				"field":   fe.Field(),
				"message": messageFor(fe),
			})
		}
	} else {
		fields = append(fields, echo.Map{"field": "", "message": err.Error()})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{
		"success": false,
		"error":   "Validation failed",
		"errors":  fields,
	})
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "phone":
		return fmt.Sprintf("%s contains invalid characters", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// fieldError builds the same 400 shape for checks done outside struct tags.
func fieldError(c echo.Context, field, message string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"success": false,
		"error":   "Validation failed",
		"errors":  []echo.Map{{"field": field, "message": message}},
	})
}
