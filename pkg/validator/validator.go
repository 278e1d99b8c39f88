package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var decimalPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// ValidationError is one failed rule, keyed by the field's JSON name.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
	Value any    `json:"value,omitempty"`
}

func (e ValidationError) String() string {
	if e.Param == "" {
		return fmt.Sprintf("%s failed on %s", e.Field, e.Tag)
	}
	return fmt.Sprintf("%s failed on %s=%s", e.Field, e.Tag, e.Param)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v))
	for _, failure := range v {
		parts = append(parts, failure.String())
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs the `validate` tags on s. Rule failures come back as ValidationErrors;
// anything else (a nil or non-struct argument) is returned as is.
func ValidateStruct(s any) error {
	err := engine().Struct(s)
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return err
	}

	out := make(ValidationErrors, len(failures))
	for i, fe := range failures {
		out[i] = ValidationError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param(), Value: fe.Value()}
	}
	return out
}

// RegisterValidation adds a custom rule to the shared validator.
func RegisterValidation(tag string, fn validator.Func) error {
	return engine().RegisterValidation(tag, fn)
}

// IsDecimal reports whether s is a plain base-10 decimal such as "12", "-3" or "0.25".
func IsDecimal(s string) bool {
	return decimalPattern.MatchString(strings.TrimSpace(s))
}

// decimal accepts blank strings; pair it with required when the field is mandatory.
func decimal(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(field.String()) == "" || IsDecimal(field.String())
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

var engine = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("decimal", decimal); err != nil {
		panic(err)
	}
	return v
})
