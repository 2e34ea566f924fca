package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/park285/omok-server/pkg/omokdto"
)

var (
	errInvalidPayload = errors.New("invalid payload")
	errInvalidColor   = errors.New("invalid color")
)

func newValidator(maxCapacity int) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("roomcap", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= 0 && n <= int64(maxCapacity)
	})
	return v
}

// decode unmarshals the intent payload into dst and validates it. A missing
// payload decodes as the zero value.
func (d *Dispatcher) decode(in omokdto.Intent, dst any) error {
	if raw := bytes.TrimSpace(in.Data); len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
	}
	if err := d.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Color" && fe.Tag() == "oneof" {
					return fmt.Errorf("%w: %q", errInvalidColor, fe.Value())
				}
			}
		}
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	return nil
}
