package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	return v
}

type rejectionReasonInput struct {
	RejectionReason string `label:"rejection reason" validate:"min=10,max=1000"`
}

type justificationInput struct {
	Justification string `label:"justification" validate:"min=5,max=1000"`
}

type deletionReasonInput struct {
	Reason string `label:"reason" validate:"min=10,max=1000"`
}

type notesInput struct {
	Notes string `label:"notes" validate:"required,max=1000"`
}

type submissionInput struct {
	StorageKey    string `label:"storage key" validate:"required,max=512"`
	InvoiceNumber string `label:"invoice number" validate:"max=100"`
}

// validateInput runs struct validation and turns the first failure into an actionable ErrValidation.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Validationf("%v", err)
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperrors.Validationf("%s is required", fe.Field())
	case "min":
		return apperrors.Validationf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return apperrors.Validationf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return apperrors.Validationf("%s is invalid", fe.Field())
}

func validateRejectionReason(reason string) error {
	return validateInput(rejectionReasonInput{RejectionReason: strings.TrimSpace(reason)})
}

// validateMoney checks a caller-supplied positive amount.
func validateMoney(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", apperrors.ErrInvalidAmount, field)
	}
	if !domain.HasExactScale(amount) {
		return fmt.Errorf("%w: %s %s", apperrors.ErrInsufficientPrecision, field, amount.String())
	}
	return nil
}

func validateDecision(decision domain.ReviewDecision, rejectionReason string) error {
	if !decision.IsValid() {
		return apperrors.Validationf("decision must be approve or reject")
	}
	if decision == domain.DecisionReject {
		return validateRejectionReason(rejectionReason)
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
