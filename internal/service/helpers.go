package service

import (
	"log/slog"

	"go-fund-admin/internal/apperror"
	"go-fund-admin/pkg/validator"
)

// SystemActor is recorded as the actor of automatic changes.
const SystemActor = "system"

func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return apperror.BadRequest("validation failed: %s", errs[0])
	}
	return nil
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
