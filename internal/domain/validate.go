package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// PostInput carries the client-supplied fields of a post create or update.
type PostInput struct {
	Title string   `json:"title" validate:"required,max=200"`
	Text  string   `json:"text" validate:"required,max=20000"`
	Tags  []string `json:"tags" validate:"max=32,dive,required,tag"`
}

// CommentInput carries the client-supplied fields of a comment create or update.
type CommentInput struct {
	Text string `json:"text" validate:"required,max=2000"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("tag", validateTag)
		validate = v
	})
	return validate
}

// validateTag rejects tags that could not round-trip through a search string:
// whitespace would split them and a leading '#' would be stripped.
func validateTag(fl validator.FieldLevel) bool {
	tag := fl.Field().String()
	if strings.HasPrefix(tag, "#") {
		return false
	}
	return !strings.ContainsFunc(tag, unicode.IsSpace)
}

// Validate checks the input and normalizes its tag set in place.
func (in *PostInput) Validate() error {
	if err := structError(validatorInstance().Struct(in)); err != nil {
		return err
	}
	in.Tags = NormalizeTags(in.Tags)
	return nil
}

// Validate checks the comment input.
func (in *CommentInput) Validate() error {
	return structError(validatorInstance().Struct(in))
}

// ValidateID rejects non-positive identifiers.
func ValidateID(field string, id int64) error {
	if id <= 0 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be a positive integer, got %d", id)}
	}
	return nil
}

func structError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if _, after, ok := strings.Cut(field, "."); ok {
		field = after
	}
	return &ValidationError{Field: field, Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return "at most " + fe.Param() + " entries allowed"
		}
		return "must be at most " + fe.Param() + " characters"
	case "tag":
		return "must not contain whitespace or start with '#'"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
