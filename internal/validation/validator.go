// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package validation wraps a shared go-playground/validator instance with
// the Clipvault-specific rules and readable error messages.
//
//	type Request struct {
//	    MatchID string `json:"match_id" validate:"required,matchid"`
//	}
//	if err := validation.ValidateStruct(&req); err != nil {
//	    for _, fe := range err.Errors() { ... }
//	}
//
// Field names in errors come from the json tag when one is present.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// MaxMatchIDLength is the longest accepted match id.
const MaxMatchIDLength = 64

var (
	validate     *validator.Validate
	validateOnce sync.Once

	matchIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)
)

// FieldError describes one failed rule.
type FieldError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the field name, taken from its json tag when present.
func (e *FieldError) Field() string { return e.field }

// Tag returns the rule that failed.
func (e *FieldError) Tag() string { return e.tag }

// Param returns the rule parameter ("2000" for "max=2000").
func (e *FieldError) Param() string { return e.param }

// Value returns the rejected value.
func (e *FieldError) Value() interface{} { return e.value }

func (e *FieldError) Error() string { return e.message }

// RequestValidationError collects every failed rule of one struct.
type RequestValidationError struct {
	errors []FieldError
}

// Errors returns the individual failures.
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.errors
}

// Fields returns the names of the failing fields in order.
func (ve *RequestValidationError) Fields() []string {
	fields := make([]string, len(ve.errors))
	for i := range ve.errors {
		fields[i] = ve.errors[i].field
	}
	return fields
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i := range ve.errors {
		messages[i] = ve.errors[i].message
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the shared validator, building it on first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return fld.Name
			default:
				return name
			}
		})

		// Registration only fails for empty tags or nil functions.
		_ = v.RegisterValidation("matchid", validateMatchID)
		_ = v.RegisterValidation("tagname", validateTagName)

		validate = v
	})
	return validate
}

// validateMatchID accepts numeric OpenDota ids and simple slugs.
func validateMatchID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) <= MaxMatchIDLength && matchIDPattern.MatchString(s)
}

// validateTagName rejects tags that could not survive the sidecar format.
func validateTagName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return strings.TrimSpace(s) != "" && !strings.ContainsAny(s, ",\r\n")
}

// ValidateStruct validates s with the shared validator. It returns nil when
// every rule passes.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []FieldError{{field: "unknown", tag: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fieldErrors[i] = FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: translateError(fe),
		}
	}
	return &RequestValidationError{errors: fieldErrors}
}

var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"matchid":  "%s must be a numeric match id or a slug of letters, digits, '-' and '_'",
	"tagname":  "%s must be non-empty and contain no commas or line breaks",
	"gt":       "%s must be greater than %s",
	"gte":      "%s must be greater than or equal to %s",
	"oneof":    "%s must be one of: %s",
}

func translateError(fe validator.FieldError) string {
	field, tag, param := fe.Namespace(), fe.Tag(), fe.Param()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	if template, ok := errorMessageTemplates[tag]; ok {
		if strings.Count(template, "%s") == 2 {
			return fmt.Sprintf(template, field, param)
		}
		return fmt.Sprintf(template, field)
	}

	isString := fe.Kind() == reflect.String
	isSlice := fe.Kind() == reflect.Slice
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		if isSlice {
			return fmt.Sprintf("%s must have at least %s entries", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		if isSlice {
			return fmt.Sprintf("%s must have at most %s entries", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
