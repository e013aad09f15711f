package http

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/nekogravitycat/item-share-backend/internal/booking"
)

var registerOnce sync.Once

// registerValidators adds the booking_state rule to gin's validator.
func registerValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		err = v.RegisterValidation("booking_state", func(fl validator.FieldLevel) bool {
			_, parseErr := booking.ParseState(fl.Field().String())
			return parseErr == nil
		})
	})
	return err
}

// stateError turns a failed booking_state rule into the domain error, so
// clients see "Unknown state: X" rather than a raw binding message.
// It returns nil when err has no such failure.
func stateError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	for _, fe := range verrs {
		if fe.Tag() == "booking_state" {
			return booking.UnknownState(fmt.Sprint(fe.Value()))
		}
	}
	return nil
}
