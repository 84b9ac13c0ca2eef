package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Page is a slice of a longer listing.
type Page struct {
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int         `json:"total"`
	Items interface{} `json:"items"`
}

func writeSuccessResponse(w http.ResponseWriter, logger zerolog.Logger, message string, data interface{}) {
	writeJSONResponse(w, logger, http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func writeErrorResponse(w http.ResponseWriter, logger zerolog.Logger, statusCode int, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}
	writeJSONResponse(w, logger, statusCode, response)
}

func writeJSONResponse(w http.ResponseWriter, logger zerolog.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().
			Err(err).
			Int("status_code", statusCode).
			Msg("Failed to encode JSON response")
	}
}

// paginationParams reads page (default 1) and limit (default 100, at most
// 1000) from the query string. Bad values fall back to the defaults.
func paginationParams(r *http.Request) (page, limit int) {
	page = 1
	limit = 100

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	return page, limit
}

// paginate returns the [lo, hi) bounds of page within n items.
func paginate(n, page, limit int) (int, int) {
	lo := min((page-1)*limit, n)
	hi := min(lo+limit, n)
	return lo, hi
}
