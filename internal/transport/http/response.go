package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"contest-service/internal/domain"
	"github.com/go-chi/httplog/v2"
)

type jsonResponse struct {
	Status  string `json:"status"` // "success" or "error"
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp jsonResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, jsonResponse{Status: "success", Data: data})
}

func writeErrorStatus(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, jsonResponse{Status: "error", Code: code, Message: message})
}

// writeError maps err onto an HTTP status and logs it on the request logger.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFromError(err)
	logger := httplog.LogEntry(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "code", code)
	} else {
		logger.Warn("request refused", "error", err, "code", code)
	}
	message := err.Error()
	if status == http.StatusInternalServerError && code == "" {
		message = http.StatusText(status)
	}
	writeErrorStatus(w, status, code, message)
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order; wrapped errors may match several sentinels.
var errorMappings = []errorMapping{
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{domain.ErrTransientWrite, http.StatusServiceUnavailable, "transient_write"},
	{domain.ErrCorruptRecord, http.StatusInternalServerError, "corrupt_record"},
	{domain.ErrValidation, http.StatusBadRequest, "validation"},
	{domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{domain.ErrParticipantNotFound, http.StatusNotFound, "participant_not_found"},
	{domain.ErrProblemNotFound, http.StatusNotFound, "problem_not_found"},
	{domain.ErrDuplicateProblem, http.StatusConflict, "duplicate_problem"},
	{domain.ErrUserExists, http.StatusConflict, "user_exists"},
	{domain.ErrContestNotActive, http.StatusConflict, "contest_not_active"},
	{domain.ErrTimeUp, http.StatusConflict, "time_up"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrVersionConflict, http.StatusConflict, "version_conflict"},
}

func statusFromError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ""
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Validationf("invalid request body: %v", err)
	}
	return nil
}
