package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasknotify/internal/api/shared"
	"github.com/phrazzld/tasknotify/internal/domain"
)

// getPathID extracts a positive int64 ID from the URL path parameters.
func getPathID(r *http.Request, paramName string) (int64, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return 0, fmt.Errorf("%s is required: %w", paramName, domain.ErrInvalidID)
	}

	id, err := strconv.ParseInt(pathParam, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s has invalid format: %w", paramName, domain.ErrInvalidID)
	}

	return id, nil
}

// respondWithErrorAndLog is a package-local shorthand for the shared helper.
func respondWithErrorAndLog(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}
