package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Loose on purpose: numbers arrive in many national formats and are fully
// normalized only at send time.
var phoneRegex = regexp.MustCompile(`^\+?[0-9 ()\-]{7,20}$`)

// RegisterCustom installs custom binding rules on gin's validator engine.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})
}
