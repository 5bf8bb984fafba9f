package check

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid check config")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateConfig reports problems an author should fix before a config is
// used. Resolve itself accepts any config; this is for presets and APIs.
func ValidateConfig(config EventCheckConfig) error {
	var errs []string

	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}

	if !finite(config.ResistToExtraRequired) {
		errs = append(errs, "resist_to_extra_required must be finite")
	}
	for i, inf := range config.Influences {
		if !finite(inf.CountFactor) {
			errs = append(errs, fmt.Sprintf("influences[%d].count_factor must be finite", i))
		}
		if inf.Weight != nil && !finite(*inf.Weight) {
			errs = append(errs, fmt.Sprintf("influences[%d].weight must be finite", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", path, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", path, fe.Tag())
	}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
