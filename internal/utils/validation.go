package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"dental-receptionist-server/internal/parse"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func isoDate(fl validator.FieldLevel) bool {
	return parse.IsISODate(fl.Field().String())
}

func clockTime(fl validator.FieldLevel) bool {
	return parse.IsClockTime(fl.Field().String())
}

// Validator returns the shared validator. It reads the same `binding` tags as
// gin and adds "isodate" (YYYY-MM-DD) and "hhmm" (24h HH:MM). The custom tags
// are registered on gin's engine as well.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName("binding")
		_ = validate.RegisterValidation("isodate", isoDate)
		_ = validate.RegisterValidation("hhmm", clockTime)

		if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = engine.RegisterValidation("isodate", isoDate)
			_ = engine.RegisterValidation("hhmm", clockTime)
		}
	})
	return validate
}

// Validate performs validation on a struct.
func Validate(s interface{}) error {
	return Validator().Struct(s)
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		var errorMessages []string
		for _, e := range errs {
			if e.Param() != "" {
				errorMessages = append(errorMessages, fmt.Sprintf("%s must satisfy %s=%s", e.Field(), e.Tag(), e.Param()))
			} else {
				errorMessages = append(errorMessages, fmt.Sprintf("%s must satisfy %s", e.Field(), e.Tag()))
			}
		}
		return strings.Join(errorMessages, ", ")
	}
	return err.Error()
}

func bindError(c *gin.Context, prefix string, err error) {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return
	}
	BadRequest(c, prefix+err.Error())
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	Validator()
	if err := c.ShouldBindJSON(obj); err != nil {
		bindError(c, "Invalid request payload: ", err)
		return false
	}
	if err := Validate(obj); err != nil {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return false
	}
	return true
}

// BindQuery binds and validates query string filters.
func BindQuery(c *gin.Context, obj interface{}) bool {
	Validator()
	if err := c.ShouldBindQuery(obj); err != nil {
		bindError(c, "Invalid query: ", err)
		return false
	}
	if err := Validate(obj); err != nil {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return false
	}
	return true
}
