package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/exwaizedd/exam-pass/pkg/auth"
	"github.com/exwaizedd/exam-pass/pkg/credential"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/participant"
	"github.com/exwaizedd/exam-pass/pkg/regstore"
	"github.com/exwaizedd/exam-pass/pkg/whitelist"
)

// newTestServer wires the registration service over an in-memory store and a
// middleware that injects the given caller, standing in for the JWT layer.
func newTestServer(t *testing.T, subject string) (http.Handler, regstore.Store) {
	t.Helper()
	store := regstore.NewMemoryStore()
	svc := NewService(store, events.NewLogEmitter(zap.NewNop()), zap.NewNop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.WithCaller(req.Context(), &auth.Caller{Subject: subject})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	RegisterRoutes(r, svc, zap.NewNop())
	return r, store
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, int) {
	t.Helper()
	var got struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}
	return got.Error, got.Code
}

func TestRegisterHTTP_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	handler, _ := newTestServer(t, "ada")

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{invalid"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	msg, code := decodeError(t, rec)
	if msg != "invalid JSON" {
		t.Fatalf("expected error %q, got %q", "invalid JSON", msg)
	}
	if code != http.StatusBadRequest {
		t.Fatalf("expected code %d, got %d", http.StatusBadRequest, code)
	}
}

func TestRegisterHTTP_NotEligible_ReturnsForbidden(t *testing.T) {
	handler, _ := newTestServer(t, "ada")

	body, _ := json.Marshal(&participant.RegisterRequest{Role: "student", Name: "Ada", NaturalID: "M001"})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
	msg, _ := decodeError(t, rec)
	if msg != "credential not eligible" {
		t.Fatalf("expected error %q, got %q", "credential not eligible", msg)
	}
}

func TestRegisterHTTP_Success_ReturnsCreated(t *testing.T) {
	handler, store := newTestServer(t, "ada")

	fp := credential.Fingerprint(credential.NaturalKey{Name: "Ada", ID: "M001"})
	if err := store.AddEligibility(context.Background(), whitelist.New(credential.RoleStudent, fp, "")); err != nil {
		t.Fatalf("AddEligibility() failed: %v", err)
	}

	body, _ := json.Marshal(&participant.RegisterRequest{Role: "student", Name: "Ada", NaturalID: "M001"})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type %q, got %q", "application/json", ct)
	}

	var resp participant.RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}
	if resp.SeqNo != 1 || resp.Fingerprint != fp {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestProfileHTTP_UnknownRole_ReturnsBadRequest(t *testing.T) {
	handler, _ := newTestServer(t, "ada")

	req := httptest.NewRequest(http.MethodGet, "/profile/proctor", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestProfileHTTP_NotRegistered_ReturnsNotFound(t *testing.T) {
	handler, _ := newTestServer(t, "ada")

	req := httptest.NewRequest(http.MethodGet, "/profile/student", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
