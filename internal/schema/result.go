package schema

import (
	"fmt"
	"sort"
)

// Rule names reported in ValidationError.Rule
const (
	RuleType       = "type"
	RuleInteger    = "integer"
	RuleUnknown    = "unknown"
	RuleRequired   = "required"
	RuleMin        = "min"
	RuleMax        = "max"
	RulePattern    = "pattern"
	RulePositive   = "positive"
	RulePrefix     = "prefix"
	RuleUUID       = "uuid"
	RuleAtLeastOne = "at_least_one"
	RuleInvalid    = "invalid"
)

// ValidationError represents a single violated rule
type ValidationError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Result contains the outcome of validating an input against a schema
type Result struct {
	Schema Name
	Valid  bool
	Value  any // Pointer to the typed input, set only when Valid
	Errors []ValidationError
}

// AddError records a violation and marks the result invalid
func (r *Result) AddError(field, rule, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Rule:    rule,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasFieldError reports whether a violation was recorded for field
func (r *Result) HasFieldError(field string) bool {
	for _, e := range r.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}

// FirstError returns the first validation error message
func (r *Result) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Error()
}

// sortErrors orders violations by field, then rule
func (r *Result) sortErrors() {
	sort.SliceStable(r.Errors, func(i, j int) bool {
		if r.Errors[i].Field != r.Errors[j].Field {
			return r.Errors[i].Field < r.Errors[j].Field
		}
		return r.Errors[i].Rule < r.Errors[j].Rule
	})
}
