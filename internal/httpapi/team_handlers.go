package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"gearguard.io/internal/audit"
	"gearguard.io/internal/gear"
)

func (a *API) listTeams(w http.ResponseWriter, r *http.Request) {
	items, err := a.teams.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) getTeam(w http.ResponseWriter, r *http.Request) {
	t, err := a.teams.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) createTeam(w http.ResponseWriter, r *http.Request) {
	body, err := bind[createTeamBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := a.teams.Create(r.Context(), gear.Team{
		Name:           body.Name,
		Specialization: body.Specialization,
		Description:    body.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) updateTeam(w http.ResponseWriter, r *http.Request) {
	body, err := bind[updateTeamBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := a.teams.Update(r.Context(), mux.Vars(r)["id"], gear.TeamPatch{
		Name:           body.Name,
		Specialization: body.Specialization,
		Description:    body.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) deleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := a.teams.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) addMember(w http.ResponseWriter, r *http.Request) {
	body, err := bind[addMemberBody](r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var role gear.MemberRole
	if body.Role != nil {
		role = gear.MemberRole(*body.Role)
	}
	teamID := mux.Vars(r)["id"]
	m, err := a.teams.AddMember(r.Context(), teamID, body.UserID, role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "team.member_added", map[string]any{
		"team_id": teamID, "member_id": m.UserID, "role": m.Role,
	})
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) removeMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := a.teams.RemoveMember(r.Context(), vars["id"], vars["userId"]); err != nil {
		writeError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "team.member_removed", map[string]any{
		"team_id": vars["id"], "member_id": vars["userId"],
	})
	w.WriteHeader(http.StatusNoContent)
}
