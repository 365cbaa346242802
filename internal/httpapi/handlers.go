package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"NewsletterEngine/internal/domain"
	"NewsletterEngine/internal/metrics"
	"NewsletterEngine/internal/usecase"
)

const (
	msgUnauthorized        = "Unauthorized"
	msgInvalidBody         = "Invalid request body"
	msgCreateFailed        = "Failed to create subscription"
	msgGenerateFailed      = "Failed to generate newsletters"
	msgGenerationCompleted = "Newsletter generation process completed."
	msgNoSubscriptions     = "No active subscriptions found."
	msgNotFound            = "Subscription not found"
	msgInternal            = "Internal server error"
)

func (s *server) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req usecase.IntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RecordIntake("invalid")
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sub, err := s.intake.Create(r.Context(), userIDFrom(r.Context()), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			metrics.RecordIntake("unauthorized")
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
		case errors.Is(err, domain.ErrInvalidRequest):
			metrics.RecordIntake("invalid")
			writeError(w, http.StatusBadRequest, msgInvalidBody)
		case errors.Is(err, domain.ErrGenerationParse):
			metrics.RecordIntake("parse_error")
			s.logger.Warn("intake derivation unusable", "error", err)
			writeError(w, http.StatusInternalServerError, msgCreateFailed)
		default:
			metrics.RecordIntake("failed")
			s.logger.Error("intake failed", "error", err)
			writeError(w, http.StatusInternalServerError, msgCreateFailed)
		}
		return
	}

	metrics.RecordIntake("created")
	writeJSON(w, http.StatusOK, sub)
}

// handleEngine runs the batch to completion even if the caller goes away,
// so a dropped trigger connection cannot skip the remaining subscriptions.
func (s *server) handleEngine(w http.ResponseWriter, r *http.Request) {
	report, err := s.batch.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		s.logger.Error("batch run failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgGenerateFailed)
		return
	}
	if report.Empty() {
		writeMessage(w, msgNoSubscriptions)
		return
	}
	writeMessage(w, msgGenerationCompleted)
}

func (s *server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.dashboard.Subscriptions(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.logger.Error("list subscriptions", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sub, err := s.dashboard.SetActive(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, msgNotFound)
		case errors.Is(err, domain.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, msgInvalidBody)
		default:
			s.logger.Error("update subscription", "error", err)
			writeError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *server) handleDigests(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	digests, err := s.dashboard.Digests(r.Context(), userIDFrom(r.Context()), limit)
	if err != nil {
		s.logger.Error("list newsletters", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, digests)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
