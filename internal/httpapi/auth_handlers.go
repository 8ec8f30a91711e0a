package httpapi

import (
	"net/http"

	"gearguard.io/internal/auth"
)

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	body, err := bind[registerBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := a.auth.Register(r.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	body, err := bind[loginBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := a.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) loginGoogle(w http.ResponseWriter, r *http.Request) {
	body, err := bind[googleBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := a.auth.LoginWithGoogle(r.Context(), body.Credential)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrAuthRequired)
		return
	}
	writeJSON(w, http.StatusOK, claims.Me())
}
