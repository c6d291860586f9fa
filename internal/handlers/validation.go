package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"foodgram/models"
)

const nonFieldErrors = "non_field_errors"

var (
	slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	validate    = newValidator()
)

// ValidationErrors maps a JSON field name to its error messages.
type ValidationErrors map[string][]string

func (e ValidationErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e[field], " "))
	}
	return strings.Join(parts, "; ")
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return models.ValidUsername(fl.Field().String())
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

func validatePayload(payload any) ValidationErrors {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{nonFieldErrors: {err.Error()}}
	}

	out := ValidationErrors{}
	for _, fe := range fieldErrors {
		out.Add(fieldName(fe), fieldMessage(fe))
	}
	return out
}

// fieldName reduces "recipeRequest.ingredients[2].amount" to "ingredients".
func fieldName(fe validator.FieldError) string {
	namespace := fe.Namespace()
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		namespace = rest
	}
	if i := strings.IndexAny(namespace, ".["); i >= 0 {
		namespace = namespace[:i]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	isCollection := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	var message string
	switch fe.Tag() {
	case "required":
		message = "This field is required."
	case "email":
		message = "Enter a valid email address."
	case "max":
		message = fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		if isCollection {
			message = fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		} else if fe.Kind() == reflect.String {
			message = fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		} else {
			message = fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
		}
	case "gt":
		message = fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "unique":
		message = "Duplicate values are not allowed."
	case "username":
		message = "Enter a valid username. It may contain letters, numbers and @/./+/-/_ characters."
	case "ne":
		message = fmt.Sprintf("The value %q is reserved.", fe.Param())
	case "slug":
		message = "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "hexcolor":
		message = "Enter a valid hex color, e.g. #49B64E."
	default:
		message = fmt.Sprintf("Failed the %q rule.", fe.Tag())
	}

	if nested := nestedField(fe); nested != "" {
		return nested + ": " + message
	}
	return message
}

// nestedField names the element path below the top-level field, if any.
func nestedField(fe validator.FieldError) string {
	namespace := fe.Namespace()
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		namespace = rest
	}
	i := strings.IndexAny(namespace, ".[")
	if i < 0 {
		return ""
	}
	return namespace[i:]
}

func writeValidationErrors(w http.ResponseWriter, errs ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, errs)
}
