package shipper

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the request invariants: positive weight and dimensions,
// six-digit pincodes, and a COD amount whenever payment is cash on delivery.
func (r *ShipmentRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidRequest)
	}
	if err := validatorInstance().Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(err))
	}
	if r.CODAmount != nil && *r.CODAmount < 0 {
		return fmt.Errorf("%w: cod_amount must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Validate checks the booking payload, including the embedded package.
func (d *ShipmentData) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: shipment data is nil", ErrInvalidRequest)
	}
	if err := validatorInstance().Struct(d); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(err))
	}
	return d.Package.Validate()
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateLane checks a serviceability query: two six-digit pincodes and a
// known payment mode.
func ValidateLane(origin, destination string, mode PaymentMode) error {
	v := validatorInstance()
	if err := v.Var(origin, "required,len=6,numeric"); err != nil {
		return fmt.Errorf("%w: origin pincode %q is not a six-digit pincode", ErrInvalidRequest, origin)
	}
	if err := v.Var(destination, "required,len=6,numeric"); err != nil {
		return fmt.Errorf("%w: destination pincode %q is not a six-digit pincode", ErrInvalidRequest, destination)
	}
	if mode != PaymentPrepaid && mode != PaymentCOD {
		return fmt.Errorf("%w: unknown payment mode %q", ErrInvalidRequest, mode)
	}
	return nil
}
