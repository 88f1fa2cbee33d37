package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"yatube/internal/models"

	"github.com/go-playground/validator/v10"
)

// PostForm is the create/edit post payload. Group is an optional group id.
type PostForm struct {
	Text  string `json:"text" form:"text" validate:"notblank"`
	Group *uint  `json:"group,omitempty" form:"group"`
}

// CommentForm is the add-comment payload.
type CommentForm struct {
	Text string `json:"text" form:"text" validate:"notblank"`
}

// SignupForm is the registration payload.
type SignupForm struct {
	Username  string `json:"username" form:"username" validate:"required,username"`
	Email     string `json:"email" form:"email" validate:"required,email_address"`
	Password  string `json:"password" form:"password" validate:"required,password"`
	FirstName string `json:"first_name" form:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" form:"last_name" validate:"max=150"`
}

// LoginForm is the credentials payload.
type LoginForm struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the custom rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return ValidateUsername(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return ValidatePassword(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("email_address", func(fl validator.FieldLevel) bool {
			return ValidateEmail(fl.Field().String()) == nil
		})
		validate = v
	})
	return validate
}

// Struct validates s and reports failures as a field validation AppError.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return models.NewFieldValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required."
	case "max":
		return "Ensure this value has at most " + fe.Param() + " characters."
	case "username":
		return ValidateUsername(fe.Value().(string)).Error()
	case "password":
		return ValidatePassword(fe.Value().(string)).Error()
	case "email_address":
		return ValidateEmail(fe.Value().(string)).Error()
	default:
		return "Invalid value."
	}
}
