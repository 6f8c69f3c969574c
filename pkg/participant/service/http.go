package service

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/exwaizedd/exam-pass/pkg/app/errors"
	apphttp "github.com/exwaizedd/exam-pass/pkg/app/http"
	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/participant"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers HTTP endpoints for the registration service on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/register", apphttp.HandleError(h.register))
	r.Get("/profile/{role}", apphttp.HandleError(h.profile))
}

// register handles HTTP requests
func (h *HTTP) register(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	var req participant.RegisterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, resp)
	return nil
}

// profile handles HTTP requests for the caller's own profile
func (h *HTTP) profile(w http.ResponseWriter, r *http.Request) error {
	role, err := credential.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return apperrors.BadRequestError(err, "invalid role")
	}

	resp, err := h.service.GetProfile(r.Context(), role)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}
