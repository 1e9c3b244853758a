// Package schema validates inbound procedure payloads against a closed set
// of strict input schemas.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Name identifies an input schema
type Name string

const (
	ClusterCreate  Name = "clusterCreate"
	ClusterUpdate  Name = "clusterUpdate"
	ClusterGet     Name = "clusterGet"
	ClusterDelete  Name = "clusterDelete"
	StripeSession  Name = "stripeSession"
	UpdateUserName Name = "updateUserName"
	Customer       Name = "customer"
)

// ErrUnknownSchema is returned when a schema name is not registered
var ErrUnknownSchema = errors.New("unknown schema")

var clusterNamePattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// definition describes how to build and check one schema's typed value
type definition struct {
	newValue func() any
	// check runs after every per-field rule has passed
	check func(v any) *ValidationError
}

var definitions = map[Name]definition{
	ClusterCreate: {
		newValue: func() any { return &types.ClusterCreateInput{} },
	},
	ClusterUpdate: {
		newValue: func() any { return &types.ClusterUpdateInput{} },
		check:    checkClusterUpdate,
	},
	ClusterGet: {
		newValue: func() any { return &types.ClusterGetInput{} },
	},
	ClusterDelete: {
		newValue: func() any { return &types.ClusterDeleteInput{} },
	},
	StripeSession: {
		newValue: func() any { return &types.StripeSessionInput{} },
	},
	UpdateUserName: {
		newValue: func() any { return &types.UserNameUpdateInput{} },
	},
	Customer: {
		newValue: func() any { return &types.CustomerInput{} },
	},
}

// Names returns every registered schema name
func Names() []Name {
	return []Name{ClusterCreate, ClusterUpdate, ClusterGet, ClusterDelete, StripeSession, UpdateUserName, Customer}
}

func checkClusterUpdate(v any) *ValidationError {
	in := v.(*types.ClusterUpdateInput)
	if in.Name == nil && in.Location == nil {
		return &ValidationError{
			Field:   "",
			Rule:    RuleAtLeastOne,
			Message: "at least one of name or location must be provided",
		}
	}
	return nil
}

// Validator validates raw JSON payloads against named schemas.
// It holds no per-call state and is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the schema-specific rules registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(jsonFieldName)

	// Cluster names: letters, digits and hyphens only
	v.RegisterValidation("clustername", func(fl validator.FieldLevel) bool {
		return clusterNamePattern.MatchString(fl.Field().String())
	})

	// The built-in uuid tag only accepts lowercase hex
	v.RegisterValidation("uuid", func(fl validator.FieldLevel) bool {
		return isUUID(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Validate checks input against the named schema. The returned error is
// non-nil only when name is not a registered schema; constraint violations
// are reported in the Result.
func (v *Validator) Validate(name Name, input []byte) (*Result, error) {
	def, ok := definitions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}

	result := &Result{
		Schema: name,
		Valid:  true,
		Errors: []ValidationError{},
	}

	input = bytes.TrimSpace(input)
	if len(input) == 0 {
		input = []byte("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input, &fields); err != nil || fields == nil {
		result.AddError("", RuleType, fmt.Sprintf("expected object, received %s", jsonKind(input)))
		return result, nil
	}

	value := def.newValue()
	rv := reflect.ValueOf(value).Elem()
	index := fieldIndex(rv.Type())

	// Fields that already failed decoding are skipped by the tag checks
	failed := make(map[string]bool)

	for key, raw := range fields {
		i, known := index[key]
		if !known {
			result.AddError(key, RuleUnknown, fmt.Sprintf("unrecognized key %q", key))
			continue
		}

		fv := rv.Field(i)
		raw = integralNumber(fv.Type(), raw)
		if err := json.Unmarshal(raw, fv.Addr().Interface()); err != nil {
			failed[key] = true
			result.AddError(key, decodeRule(fv.Type(), raw), decodeMessage(fv.Type(), raw))
		}
	}

	if err := v.validate.Struct(value); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate %s: %w", name, err)
		}
		for _, fe := range verrs {
			if failed[fe.Field()] {
				continue
			}
			result.AddError(fe.Field(), ruleName(fe.Tag()), describe(fe))
		}
	}

	if result.Valid && def.check != nil {
		if verr := def.check(value); verr != nil {
			result.AddError(verr.Field, verr.Rule, verr.Message)
		}
	}

	if !result.Valid {
		result.sortErrors()
		return result, nil
	}

	result.Value = value
	return result, nil
}

// ValidateMap checks an already-decoded object against the named schema
func (v *Validator) ValidateMap(name Name, input map[string]any) (*Result, error) {
	if input == nil {
		input = map[string]any{}
	}
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	return v.Validate(name, data)
}

// isUUID accepts the hyphenated 36 character form in either case
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// maxInt64Float is 2^63, the first float64 above math.MaxInt64
const maxInt64Float = float64(1 << 63)

// integralNumber rewrites integral floats such as 5.0 or 1e2 as plain
// integers when the target field is an integer. Anything else is returned
// unchanged so decoding reports it.
func integralNumber(t reflect.Type, raw []byte) []byte {
	if expectedKind(t) != "integer" || jsonKind(raw) != "float" {
		return raw
	}
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
	if err != nil || math.Trunc(f) != f || f < math.MinInt64 || f >= maxInt64Float {
		return raw
	}
	return strconv.AppendInt(nil, int64(f), 10)
}

// jsonFieldName reports struct fields by their JSON key
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// fieldIndex maps JSON keys to struct field indexes
func fieldIndex(t reflect.Type) map[string]int {
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := jsonFieldName(t.Field(i)); name != "" {
			index[name] = i
		}
	}
	return index
}

// jsonKind names the JSON type of a raw value
func jsonKind(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "nothing"
	}
	switch raw[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		if bytes.ContainsAny(raw, ".eE") {
			return "float"
		}
		return "number"
	}
}

func expectedKind(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return t.Kind().String()
	}
}

func decodeRule(t reflect.Type, raw []byte) string {
	if expectedKind(t) == "integer" && jsonKind(raw) == "float" {
		return RuleInteger
	}
	return RuleType
}

func decodeMessage(t reflect.Type, raw []byte) string {
	return fmt.Sprintf("expected %s, received %s", expectedKind(t), jsonKind(raw))
}

// ruleNames translates validator tags to reported rule names
var ruleNames = map[string]string{
	"required":    RuleRequired,
	"min":         RuleMin,
	"max":         RuleMax,
	"gt":          RulePositive,
	"startswith":  RulePrefix,
	"uuid":        RuleUUID,
	"clustername": RulePattern,
}

func ruleName(tag string) string {
	if name, ok := ruleNames[tag]; ok {
		return name
	}
	return RuleInvalid
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s character(s)", fe.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s character(s)", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "clustername":
		return "may only contain letters, numbers and hyphens"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
