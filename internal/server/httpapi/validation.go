package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/elnafo/internal/common"
)

var loginPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

var registerValidatorsOnce sync.Once

// registerValidators installs the "login" rule on gin's validator and makes
// field errors report JSON names.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("login", func(fl validator.FieldLevel) bool {
			return loginPattern.MatchString(fl.Field().String())
		})
	})
}

// validationError lists the request fields that failed their rules.
type validationError struct {
	fields string
}

func (e *validationError) Error() string {
	return common.ErrInvalidInput.Error() + ": " + e.fields
}

func (e *validationError) Unwrap() error { return common.ErrInvalidInput }

// bindError converts a binding failure into an ErrInvalidInput. Field rule
// failures become a *validationError naming the offending fields.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
	}
	return &validationError{fields: strings.Join(parts, ", ")}
}
