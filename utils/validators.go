package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/phillip/crowdfunding-go/models"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags to gin's validator engine.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("recipient", ValidateRecipient)
		}
	})
}

// ValidateRecipient accepts only known recipient categories.
func ValidateRecipient(fl validator.FieldLevel) bool {
	_, ok := models.ParseRecipient(fl.Field().String())
	return ok
}

// BindingErrorMessage turns a gin binding error into a short client message.
func BindingErrorMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "Invalid request body."
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "recipient":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, models.RecipientList()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ") + "."
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
