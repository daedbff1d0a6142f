package server

import (
	"errors"
	"net/http"

	"github.com/matheuscscp/fairshare/internal/auth"
	"github.com/matheuscscp/fairshare/models"
	"github.com/matheuscscp/fairshare/storage"

	"github.com/sirupsen/logrus"
)

var (
	errBadRequest = errors.New("bad request")
	errForbidden  = errors.New("forbidden")
	errTooLarge   = errors.New("too large")
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrOverClaimed):
		return http.StatusConflict
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRealm),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, errBadRequest),
		errors.Is(err, models.ErrUnknownItem),
		errors.Is(err, models.ErrInvalidItem),
		errors.Is(err, models.ErrNegativeClaim):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the status matching err. Internal errors are
// logged and hidden from the client.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).Error("error handling request")
		errorJSON(w, status, "internal error")
		return
	}
	errorJSON(w, status, "%s", err.Error())
}

func isUnknownItem(err error) bool {
	return errors.Is(err, models.ErrUnknownItem)
}
