package http

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"torweather/internal/domain/router"
)

// RegisterValidators wires the custom form validations into gin's
// binding validator. Safe to call more than once.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// fingerprint accepts a 40 hex digit relay fingerprint, tolerating
	// the spaces and case relay operators paste in.
	_ = v.RegisterValidation("fingerprint", func(fl validator.FieldLevel) bool {
		return router.ValidFingerprint(router.NormalizeFingerprint(fl.Field().String()))
	})
}
