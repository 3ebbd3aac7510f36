package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"helipad/pkg/logger"
	"helipad/pkg/model"

	"github.com/go-playground/validator/v10"
)

const maxMetadataKeyLength = 64

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New()

	if err := v.RegisterValidation("metadata_keys", validateMetadataKeys); err != nil {
		log.Fatal("Failed to register 'metadata_keys' validator",
			"error", err,
		)
	}

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

// validateMetadataKeys rejects keys that Mongo would read as operators or
// paths.
func validateMetadataKeys(fl validator.FieldLevel) bool {
	value := fl.Field()
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return true
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Map {
		return false
	}

	for _, key := range value.MapKeys() {
		k := key.String()
		if k == "" || len(k) > maxMetadataKeyLength {
			return false
		}
		if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return false
		}
	}
	return true
}

func (v *ReservationValidator) ValidateRequest(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) ValidateUpdate(update *model.BookingUpdate) error {
	if update.Empty() {
		return ValidationErrors{
			ValidationError{
				Field:   "BookingUpdate",
				Message: "at least one of start_time, end_time or metadata is required",
			},
		}
	}

	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must have at most %s entries", err.Field(), err.Param())
		case "metadata_keys":
			message = fmt.Sprintf("%s keys must be 1-%d characters and must not start with '$' or contain '.'", err.Field(), maxMetadataKeyLength)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
