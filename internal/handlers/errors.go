package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"choreking/internal/service"
	"choreking/internal/validation"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// errorMapping pairs a service sentinel with its wire representation
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrEmailInUse, http.StatusConflict, "EMAIL_IN_USE"},
	{service.ErrCodeInUse, http.StatusConflict, "CODE_IN_USE"},
	{service.ErrSlugInUse, http.StatusConflict, "SLUG_IN_USE"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrInvalidPIN, http.StatusUnauthorized, "INVALID_PIN"},
	{service.ErrSessionNotFound, http.StatusUnauthorized, "UNAUTHORIZED"},
	{service.ErrSessionExpired, http.StatusUnauthorized, "UNAUTHORIZED"},
	{service.ErrFamilyNotFound, http.StatusNotFound, "FAMILY_NOT_FOUND"},
	{service.ErrChildNotFound, http.StatusNotFound, "CHILD_NOT_FOUND"},
	{service.ErrChoreNotFound, http.StatusNotFound, "CHORE_NOT_FOUND"},
	{service.ErrRewardNotFound, http.StatusNotFound, "REWARD_NOT_FOUND"},
	{service.ErrContentNotFound, http.StatusNotFound, "NOT_FOUND"},
	{service.ErrChoreNotSubmitted, http.StatusBadRequest, "CHORE_NOT_SUBMITTED"},
	{service.ErrInsufficientPoints, http.StatusBadRequest, "INSUFFICIENT_POINTS"},
	{service.ErrBillingUnavailable, http.StatusServiceUnavailable, "BILLING_UNAVAILABLE"},
}

// writeServiceError translates a service error into a JSON error response.
// Unknown errors are logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *validation.Error
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message)
		return
	}

	for _, mapping := range errorMapping {
		if errors.Is(err, mapping.err) {
			writeError(w, mapping.status, mapping.code, mapping.err.Error())
			return
		}
	}

	log.Printf("Internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong")
}
