package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"asset-tracker/internal/ingest"
)

// RegisterValidations installs the custom binding rules the query DTOs
// use. Call once during router setup.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("devicemode", validDeviceMode)
	}
}

func validDeviceMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case ingest.ModeDemo, ingest.ModeTransit, ingest.ModeStorage:
		return true
	}
	return false
}
