package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"aptbook/pkg/logger"
	"aptbook/pkg/model"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

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

var maxAmount = decimal.NewFromInt(1_000_000)

type ApartmentValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewApartmentValidator(log *logger.Logger) *ApartmentValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	log.Info("Apartment validator initialized successfully")

	return &ApartmentValidator{
		validate: v,
		logger:   log,
	}
}

func (v *ApartmentValidator) ValidateCreate(input *model.ApartmentInput) error {
	return v.validateStruct(input)
}

func (v *ApartmentValidator) ValidateUpdate(input *model.ApartmentUpdate) error {
	if err := v.validateStruct(input); err != nil {
		return err
	}
	if input.Address != nil {
		return v.validateStruct(input.Address)
	}
	return nil
}

// ValidatePricing requires a positive nightly rate and non-negative fees,
// all with at most two decimal places.
func (v *ApartmentValidator) ValidatePricing(input *model.PricingInput) error {
	var errs ValidationErrors
	if err := v.validateStruct(input); err != nil {
		var fieldErrs ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		errs = append(errs, fieldErrs...)
	}

	if !input.PricePerNight.IsPositive() {
		errs = append(errs, ValidationError{Field: "price_per_night", Message: "price_per_night must be greater than 0"})
	}
	amounts := []struct {
		field string
		value *decimal.Decimal
	}{
		{"price_per_night", &input.PricePerNight},
		{"cleaning_fee", &input.CleaningFee},
		{"service_fee", &input.ServiceFee},
		{"weekend_price", input.WeekendPrice},
	}
	for _, a := range amounts {
		if a.value == nil {
			continue
		}
		switch {
		case a.value.IsNegative():
			errs = append(errs, ValidationError{Field: a.field, Message: a.field + " cannot be negative"})
		case a.value.GreaterThan(maxAmount):
			errs = append(errs, ValidationError{Field: a.field, Message: a.field + " is too large"})
		case !a.value.Equal(a.value.Round(2)):
			errs = append(errs, ValidationError{Field: a.field, Message: a.field + " allows at most 2 decimal places"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateAvailability rejects calendars that mention the same day twice.
func (v *ApartmentValidator) ValidateAvailability(input *model.AvailabilityInput) error {
	if err := v.validateStruct(input); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(input.Days))
	for i, day := range input.Days {
		key := day.Date.String()
		if _, dup := seen[key]; dup {
			return ValidationErrors{{
				Field:   fmt.Sprintf("days[%d].date", i),
				Message: "date " + key + " appears more than once",
			}}
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (v *ApartmentValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ApartmentValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "uppercase":
			message = fmt.Sprintf("%s must be uppercase", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
