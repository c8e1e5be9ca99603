package handlers

import (
	"net/http"

	"github.com/upb/expert-gateway/services"
	"github.com/upb/expert-gateway/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to JSON HTTP responses.
// Errors outside the taxonomy are logged and collapse to 500.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status, message := services.StatusAndMessage(err)
	if status >= http.StatusInternalServerError {
		logger.Error("internal server error",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
	} else {
		logger.Debug("handled service error",
			zap.Int("status", status),
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))
	}

	if err := utils.WriteError(w, status, message, nil); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
