package services

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Input types declare their rules in gin `binding` tags. inputRules runs the same tags so
// callers that bypass the HTTP layer get identical checks and identical field keys.
var inputRules = newInputValidator()

func newInputValidator() *playground.Validate {
	v := playground.New()
	v.SetTagName("binding")
	ConfigureValidator(v)
	return v
}

// ConfigureValidator makes v report fields by their json names and adds notblank.
// The router applies it to gin's engine.
func ConfigureValidator(v *playground.Validate) {
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
}

// FieldErrors turns binding failures into messages keyed by dotted path, e.g. "tasks.3.title".
func FieldErrors(errs playground.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		key := fieldPath(fe.Namespace())
		if _, seen := fields[key]; !seen {
			fields[key] = messageFor(fe, humanName(fe.Field()))
		}
	}
	return fields
}

// TypeErrorFields reports a JSON value of the wrong type against its field. It returns
// false when the error carries no field, such as a body that is not an object.
func TypeErrorFields(err error) (map[string]string, bool) {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Field == "" {
		return nil, false
	}
	name := humanName(typeErr.Field[strings.LastIndexByte(typeErr.Field, '.')+1:])

	var msg string
	switch {
	case typeErr.Type == timestampType:
		msg = "The " + name + " is not a valid date."
	case isInteger(typeErr.Type):
		msg = "The " + name + " must be an integer."
	case typeErr.Type.Kind() == reflect.Bool:
		msg = "The " + name + " field must be true or false."
	case typeErr.Type.Kind() == reflect.String:
		msg = "The " + name + " must be a string."
	case typeErr.Type.Kind() == reflect.Slice:
		msg = "The " + name + " must be an array."
	default:
		msg = "The " + name + " is invalid."
	}
	return map[string]string{typeErr.Field: msg}, true
}

// fieldPath drops the root type name and rewrites indexes: "BulkStoreRequest.tasks[3].title" becomes "tasks.3.title".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	return strings.NewReplacer("[", ".", "]", "").Replace(namespace)
}

func messageFor(fe playground.FieldError, name string) string {
	kind := fe.Kind()

	switch fe.Tag() {
	case "required", "notblank":
		return "The " + name + " field is required."
	case "email":
		return "The " + name + " must be a valid email address."
	case "uuid", "uuid4", "oneof":
		return "The selected " + name + " is invalid."
	case "min":
		switch {
		case kind == reflect.String:
			return "The " + name + " must be at least " + fe.Param() + " characters."
		case kind == reflect.Slice:
			return "The " + name + " must have at least " + fe.Param() + " items."
		default:
			return "The " + name + " must be at least " + fe.Param() + "."
		}
	case "max":
		switch {
		case kind == reflect.String:
			return "The " + name + " may not be greater than " + fe.Param() + " characters."
		case kind == reflect.Slice:
			return "The " + name + " may not have more than " + fe.Param() + " items."
		default:
			return "The " + name + " may not be greater than " + fe.Param() + "."
		}
	default:
		return "The " + name + " is invalid."
	}
}

func humanName(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

var timestampType = reflect.TypeOf(Timestamp{})

// validator collects field messages, from binding tags and from checks tags cannot express.
type validator struct {
	fields map[string]string
}

// input runs the binding tags of s. Keys already reported are kept.
func (v *validator) input(s interface{}) {
	err := inputRules.Struct(s)
	if err == nil {
		return
	}
	var errs playground.ValidationErrors
	if !errors.As(err, &errs) {
		v.check(false, "input", err.Error())
		return
	}
	for key, msg := range FieldErrors(errs) {
		v.check(false, key, msg)
	}
}

// inputAt runs the binding tags of one element of a list, reporting keys under prefix.
func (v *validator) inputAt(prefix string, s interface{}) {
	var errs playground.ValidationErrors
	if err := inputRules.Struct(s); errors.As(err, &errs) {
		for key, msg := range FieldErrors(errs) {
			v.check(false, prefix+key, msg)
		}
	}
}

// field checks a single value against a binding rule, reported under key.
func (v *validator) field(key string, value interface{}, rule string) {
	var errs playground.ValidationErrors
	if err := inputRules.Var(value, rule); errors.As(err, &errs) {
		v.check(false, key, messageFor(errs[0], humanName(key[strings.LastIndexByte(key, '.')+1:])))
	}
}

func (v *validator) check(ok bool, field, message string) {
	if ok {
		return
	}
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = message
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
