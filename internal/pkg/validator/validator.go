package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Transaction type validation
	validate.RegisterValidation("tx_type", func(fl validator.FieldLevel) bool {
		return oneOf(fl.Field().String(),
			"payment", "refund", "tip", "loyalty_credit", "withdrawal", "deposit")
	})

	// Transaction status validation
	validate.RegisterValidation("tx_status", func(fl validator.FieldLevel) bool {
		return oneOf(fl.Field().String(),
			"pending", "processing", "completed", "failed", "cancelled", "")
	})

	// Currency validation
	validate.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return oneOf(fl.Field().String(), "BRL", "USD", "EUR", "")
	})

	// Payment method validation
	validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return oneOf(fl.Field().String(),
			"credit_card", "debit_card", "pix", "bank_transfer", "wallet", "cash", "")
	})
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "tx_type":
			errors[field] = "Invalid transaction type"
		case "tx_status":
			errors[field] = "Invalid transaction status"
		case "currency":
			errors[field] = "Invalid currency. Must be: BRL, USD, or EUR"
		case "payment_method":
			errors[field] = "Invalid payment method"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// Message flattens field errors into a single human-readable message.
func Message(fieldErrors map[string]string) string {
	if len(fieldErrors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fieldErrors))
	for field, msg := range fieldErrors {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}
