package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator plugs go-playground/validator into Echo's Validator hook.
// Handlers call c.Validate right after binding a request DTO.
type RequestValidator struct {
	validate *validator.Validate
}

// New creates a request validator. Field names in validation errors follow
// the json (or query) tag so messages match the wire format.
func New() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return &RequestValidator{validate: v}
}

// Validate performs struct validation
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.validate.Struct(i)
}
