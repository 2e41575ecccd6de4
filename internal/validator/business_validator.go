package validator

import (
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/CWB-F-2025/whiteboard-service/internal/models"
)

var joinCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateSessionCreate validates session creation business rules
func (bv *BusinessValidator) ValidateSessionCreate(req *SessionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.ScheduledFor != nil && req.ScheduledFor.Before(time.Now()) {
		errors = append(errors, ValidationError{
			Field:   "scheduled_for",
			Message: "must be in the future",
			Value:   req.ScheduledFor,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateSessionUpdate validates session update business rules
func (bv *BusinessValidator) ValidateSessionUpdate(req *SessionUpdateRequest, existing *models.Session) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if !existing.IsActive {
		errors = append(errors, ValidationError{
			Field:   "session",
			Message: "cannot modify an ended session",
			Value:   existing.ID,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateMessageContent checks the chat message bounds after trimming.
// The stored message keeps the original content; only the bound check trims.
func (bv *BusinessValidator) ValidateMessageContent(content string) ValidationErrors {
	var errors ValidationErrors

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		errors = append(errors, ValidationError{
			Field:   "content",
			Message: "cannot be empty",
			Rule:    "business_logic",
		})
		return errors
	}

	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		errors = append(errors, ValidationError{
			Field:   "content",
			Message: "cannot exceed 500 characters",
			Value:   utf8.RuneCountInString(content),
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Title validation (1-100 characters after trimming)
	bv.validate.RegisterValidation("session_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && utf8.RuneCountInString(title) <= 100
	})

	// Join code shape: 6 alphanumerics, case handled at lookup
	bv.validate.RegisterValidation("join_code", func(fl validator.FieldLevel) bool {
		return joinCodePattern.MatchString(fl.Field().String())
	})

	// Message content bound
	bv.validate.RegisterValidation("message_content", func(fl validator.FieldLevel) bool {
		content := fl.Field().String()
		return strings.TrimSpace(content) != "" && utf8.RuneCountInString(content) <= models.MaxMessageLength
	})

	// Scheduled date must be in the future
	bv.validate.RegisterValidation("future_date", func(fl validator.FieldLevel) bool {
		field := fl.Field()

		if field.Kind() == reflect.Ptr && field.IsNil() {
			return true // Optional field
		}

		var ts time.Time
		if field.Kind() == reflect.Ptr {
			ts = field.Elem().Interface().(time.Time)
		} else {
			ts = field.Interface().(time.Time)
		}

		return ts.After(time.Now())
	})
}
