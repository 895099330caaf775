package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message,omitempty"`
	Data        any                `json:"data,omitempty"`
	Code        string             `json:"code,omitempty"`
	Errors      []string           `json:"errors,omitempty"`
	StockIssues []model.StockIssue `json:"stockIssues,omitempty"`

	// Pagination, list endpoints only.
	Count *int `json:"count,omitempty"`
	Total *int `json:"total,omitempty"`
	Page  *int `json:"page,omitempty"`
	Pages *int `json:"pages,omitempty"`
}

// writeJSON writes a JSON response with the given status code. The status is
// already on the wire when encoding starts, so an encoding failure only
// truncates the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func writePage(w http.ResponseWriter, data any, count, total, page, limit int) {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Count:   &count,
		Total:   &total,
		Page:    &page,
		Pages:   &pages,
	})
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, Response{Success: false, Message: message})
}

// writeServiceError maps a service error to its HTTP status. Anything that is
// not a domain error is reported as a generic 500 and logged in full.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	de, ok := model.AsDomainError(err)
	if !ok {
		logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Code:    model.ErrCodeInternalError,
			Message: "Internal server error",
		})
		return
	}

	status := http.StatusBadRequest
	if de.Kind == model.KindNotFound {
		status = http.StatusNotFound
	}
	logger.Debug().Str("code", de.Code).Int("status", status).Msg(de.Message)
	writeJSON(w, status, Response{
		Success:     false,
		Code:        de.Code,
		Message:     de.Message,
		Errors:      de.Errors,
		StockIssues: de.StockIssues,
	})
}

// decodeJSON reads the request body into dst. An empty body leaves dst as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger zerolog.Logger) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	logger.Debug().Err(err).Msg("invalid request body")
	writeJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Code:    model.ErrCodeInvalidJSON,
		Message: "Invalid JSON in request body",
	})
	return false
}

// requireUser returns the caller set by the JWT middleware.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Code: model.ErrCodeUnauthorised, Message: "Access token required"})
		return "", false
	}
	return userID, true
}

// queryInt parses an integer query parameter, returning 0 when absent or malformed.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
