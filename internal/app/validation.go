package app

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"timed-quiz-service/internal/domain"
)

var lettersOnly = regexp.MustCompile(`^[A-Za-z\s]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("letters", func(fl validator.FieldLevel) bool {
		return lettersOnly.MatchString(fl.Field().String())
	})
	return v
}

type durationInput struct {
	Minutes int `validate:"min=1,max=180"`
}

type timerInput struct {
	Seconds int `validate:"min=10,max=180"`
}

type questionInput struct {
	Text               string   `validate:"required"`
	Options            []string `validate:"len=4,dive,required"`
	CorrectOptionIndex int      `validate:"min=1,max=4"`
	Timer              int      `validate:"omitempty,min=10,max=180"`
}

type loginInput struct {
	Name  string `validate:"required,letters"`
	Email string `validate:"required,email"`
}

type submissionInput struct {
	UserName   string `validate:"required"`
	UserEmail  string `validate:"required"`
	Answers    []*int `validate:"required"`
	TabChanges int    `validate:"min=0"`
}

// validateStruct runs struct tags and converts the first failure into a domain.ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.Invalid("", err.Error())
	}
	fe := fieldErrs[0]
	return domain.Invalid(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must contain exactly %s items", fe.Param())
	case "email":
		return "must be a valid email address"
	case "letters":
		return "only alphabetic characters (A-Z, a-z) are allowed"
	default:
		return "is invalid"
	}
}
