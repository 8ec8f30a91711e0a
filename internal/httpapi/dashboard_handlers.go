package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"gearguard.io/internal/gear"
)

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	s, err := a.dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// recentRequests reads ?limit=N (clamped to 1..100). Like parseInt, a
// leading integer is honoured and anything unparsable means the default.
func (a *API) recentRequests(w http.ResponseWriter, r *http.Request) {
	limit := leadingInt(r.URL.Query().Get("limit"))
	items, err := a.dashboard.RecentRequests(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// leadingInt parses an optional sign and the digits that follow it,
// returning 0 when there are none.
func leadingInt(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		// out of range
		if raw[0] == '-' {
			return 0
		}
		return gear.MaxRecentLimit
	}
	return n
}

func (a *API) users(w http.ResponseWriter, r *http.Request) {
	items, err := a.dashboard.Users(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
