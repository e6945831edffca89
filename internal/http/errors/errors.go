package errors

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"gitea.jw6.us/james/shalendar/internal/apperr"
)

type body struct {
	Message string `json:"message"`
}

// Write maps err to a status code and a {"message": ...} body. Internal
// failures are logged with the request id and hidden from the client.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	logger := zerolog.Ctx(r.Context())
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	JSON(w, status, body{Message: apperr.PublicMessage(err)})
}

// Status is the HTTP status for err.
func Status(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message writes a plain {"message": ...} body with status.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, body{Message: message})
}

// JSON writes v as the response body.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
