package httpapi

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"gearguard.io/internal/apperr"
	"gearguard.io/internal/audit"
	"gearguard.io/internal/obs"
)

type errorBody struct {
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

// writeError renders err through the kind→status table. Internal causes are
// logged with the request id and never shown to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok || ae.Kind == apperr.Internal {
		obs.Logger().WithFields(logrus.Fields{
			"request_id": audit.RequestID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"error":      err.Error(),
		}).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Internal server error"})
		return
	}
	writeJSON(w, ae.Kind.Status(), errorBody{Message: ae.Message, Errors: ae.Fields})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperr.New(apperr.NotFound, "Route not found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperr.New(apperr.MethodNotAllowed, "Method not allowed"))
}
