package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"raffle/domain/entities"

	log "github.com/sirupsen/logrus"
)

// ErrBadRequest marks malformed input that never reached the engine
var ErrBadRequest = errors.New("bad request")

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrRoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, entities.ErrInvalidAmount),
		errors.Is(err, entities.ErrInvalidAccount),
		errors.Is(err, entities.ErrInvalidRandomValue):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrNotWinner):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrRoundClosed),
		errors.Is(err, entities.ErrNotReady),
		errors.Is(err, entities.ErrRandomnessPending),
		errors.Is(err, entities.ErrAlreadyResolved),
		errors.Is(err, entities.ErrAlreadyClaimed),
		errors.Is(err, entities.ErrRoundNotCompleted),
		errors.Is(err, entities.ErrRoundInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	if errors.Is(err, ErrBadRequest) {
		return "bad_request"
	}
	return entities.ErrorKind(err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}).Error("request failed")
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: errorKind(err), Message: message})
}
