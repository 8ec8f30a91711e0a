package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"gearguard.io/internal/auth"
	"gearguard.io/internal/gear"
)

func (a *API) listRequests(w http.ResponseWriter, r *http.Request) {
	items, err := a.requests.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) getRequest(w http.ResponseWriter, r *http.Request) {
	v, err := a.requests.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	body, err := bind[createRequestBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	req, err := a.requests.Create(r.Context(), body.request(userID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) updateRequest(w http.ResponseWriter, r *http.Request) {
	body, err := bind[updateRequestBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	req, err := a.requests.Update(r.Context(), mux.Vars(r)["id"], userID, body.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) updateRequestStatus(w http.ResponseWriter, r *http.Request) {
	body, err := bind[updateStatusBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())
	req, err := a.requests.UpdateStatus(r.Context(), mux.Vars(r)["id"], userID, gear.RequestStatus(body.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) calendar(w http.ResponseWriter, r *http.Request) {
	items, err := a.requests.Calendar(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) kanban(w http.ResponseWriter, r *http.Request) {
	items, err := a.requests.Kanban(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
