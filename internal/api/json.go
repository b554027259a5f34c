package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps the panel error taxonomy onto HTTP statuses. Messages
// keep the underlying status/text so the user-visible notice can show
// them.
func writeError(w http.ResponseWriter, err error) {
	var reqErr *apperr.RequestError
	var fmtErr *apperr.DataFormatError

	switch {
	case errors.Is(err, apperr.ErrMissingCredential),
		errors.Is(err, apperr.ErrMissingProfile):
		writeJSON(w, http.StatusPreconditionFailed, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrPreloadActive):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidCredential):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.As(err, &reqErr), errors.As(err, &fmtErr):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}
