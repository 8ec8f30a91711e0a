package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (a *API) listEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := a.equipment.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) getEquipment(w http.ResponseWriter, r *http.Request) {
	item, err := a.equipment.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) createEquipment(w http.ResponseWriter, r *http.Request) {
	body, err := bind[createEquipmentBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := a.equipment.Create(r.Context(), body.equipment())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (a *API) updateEquipment(w http.ResponseWriter, r *http.Request) {
	body, err := bind[updateEquipmentBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := a.equipment.Update(r.Context(), mux.Vars(r)["id"], body.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) deleteEquipment(w http.ResponseWriter, r *http.Request) {
	if err := a.equipment.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) equipmentRequests(w http.ResponseWriter, r *http.Request) {
	items, err := a.equipment.Requests(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
