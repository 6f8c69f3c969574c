package service

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/exwaizedd/exam-pass/pkg/app/errors"
	apphttp "github.com/exwaizedd/exam-pass/pkg/app/http"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers HTTP endpoints for the verification service on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Get("/verify/{passID}", apphttp.HandleError(h.verify))
}

// verify handles HTTP requests
func (h *HTTP) verify(w http.ResponseWriter, r *http.Request) error {
	passID, err := strconv.ParseUint(chi.URLParam(r, "passID"), 10, 64)
	if err != nil {
		return apperrors.BadRequestError(err, "invalid pass id")
	}

	resp, err := h.service.Verify(r.Context(), passID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}
