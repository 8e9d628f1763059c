package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/auth"
	"github.com/givdo/givdo/internal/facebook"
	"github.com/givdo/givdo/internal/game"
	"github.com/givdo/givdo/internal/models"
	"github.com/givdo/givdo/internal/organizations"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

// writeError maps service errors to a status. Unknown errors are logged and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, verr)
	case errors.Is(err, auth.ErrUnauthenticated):
		writeMessage(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, models.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, game.ErrNotPlayer):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrNoRoundsLeft), errors.Is(err, models.ErrGameFull):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrSelfVersus):
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, organizations.ErrUpstreamUnavailable), errors.Is(err, facebook.ErrUpstream):
		logger.WithError(err).WithField("path", r.URL.Path).Warn("upstream failure")
		writeMessage(w, http.StatusBadGateway, "upstream unavailable")
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}
