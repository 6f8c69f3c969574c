package service

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/exwaizedd/exam-pass/pkg/app/errors"
	apphttp "github.com/exwaizedd/exam-pass/pkg/app/http"
	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/pass"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the admin control plane endpoints on the given
// chi router. The router is expected to already enforce admin access; the
// service re-checks it regardless.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/eligibility", apphttp.HandleError(h.addEligible))
	r.Delete("/eligibility", apphttp.HandleError(h.removeEligible))
	r.Get("/eligibility/{role}", apphttp.HandleError(h.listEligible))
	r.Post("/revoke", apphttp.HandleError(h.revoke))
	r.Post("/paid", apphttp.HandleError(h.markPaid))
	r.Get("/paid/{subject}", apphttp.HandleError(h.queryPaid))
	r.Get("/events", apphttp.HandleError(h.listEvents))
}

func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	return nil
}

// addEligible handles HTTP requests
func (h *HTTP) addEligible(w http.ResponseWriter, r *http.Request) error {
	var req whitelist.AddRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	resp, err := h.service.AddEligible(r.Context(), &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, resp)
	return nil
}

// removeEligible handles HTTP requests
func (h *HTTP) removeEligible(w http.ResponseWriter, r *http.Request) error {
	var req whitelist.RemoveRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	if err := h.service.RemoveEligible(r.Context(), &req); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// listEligible handles HTTP requests
func (h *HTTP) listEligible(w http.ResponseWriter, r *http.Request) error {
	role, err := credential.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return apperrors.BadRequestError(err, "invalid role")
	}

	resp, err := h.service.ListEligible(r.Context(), role)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// revoke handles HTTP requests
func (h *HTTP) revoke(w http.ResponseWriter, r *http.Request) error {
	var req whitelist.RemoveRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	if err := h.service.Revoke(r.Context(), &req); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// markPaid handles HTTP requests
func (h *HTTP) markPaid(w http.ResponseWriter, r *http.Request) error {
	var req pass.MarkPaidRequest
	if err := decode(r, &req); err != nil {
		return err
	}

	resp, err := h.service.MarkPaid(r.Context(), &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// queryPaid handles HTTP requests
func (h *HTTP) queryPaid(w http.ResponseWriter, r *http.Request) error {
	resp, err := h.service.QueryPaid(r.Context(), chi.URLParam(r, "subject"))
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// listEvents handles HTTP requests
func (h *HTTP) listEvents(w http.ResponseWriter, r *http.Request) error {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return apperrors.BadRequestError(err, "invalid limit")
		}
		limit = parsed
	}

	resp, err := h.service.ListEvents(r.Context(), limit)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}
