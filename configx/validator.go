package configx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	coreerrors "go.eggybyte.com/carddesk/core/errors"
)

// ValidatorOption customises a validator, e.g. to register custom tags.
type ValidatorOption func(*validator.Validate)

// NewValidator creates a validator with required-struct checking enabled.
func NewValidator(opts ...ValidatorOption) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateStruct runs validate tags on target. Field failures are reported as
// one INVALID_ARGUMENT error listing "Field: tag" pairs.
func ValidateStruct(v *validator.Validate, target any) error {
	if v == nil {
		v = NewValidator()
	}
	err := v.Struct(target)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return coreerrors.Wrap(coreerrors.CodeInvalidArgument, "configx.ValidateStruct", err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return coreerrors.Newf(coreerrors.CodeInvalidArgument, "validation failed: %s", strings.Join(parts, ", "))
}
