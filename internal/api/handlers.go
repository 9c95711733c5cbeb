package api

import (
	"net/http"
	"sort"
	"strconv"

	"landwatch/internal/land"

	"github.com/gorilla/mux"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// landStateResponse is the JSON shape returned for a single land, matching
// the stream protocol's cached-snapshot message.
type landStateResponse struct {
	LandNumber int           `json:"landNumber"`
	CreatedAt  interface{}   `json:"createdAt"`
	ExpiresAt  interface{}   `json:"expiresAt"`
	State      land.RawState `json:"state"`
}

func (s *Server) handleLandState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	n, err := strconv.Atoi(vars["n"])
	if err != nil || n < 1 || n > s.maxLand {
		writeError(w, http.StatusBadRequest, "invalid_land", "land number must be between 1 and "+strconv.Itoa(s.maxLand))
		return
	}

	snap, err := s.store.Get(r.Context(), land.Id(n))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "not_found", "no cached state for this land")
		return
	}

	writeJSON(w, http.StatusOK, landStateResponse{
		LandNumber: n,
		CreatedAt:  snap.CreatedAt,
		ExpiresAt:  snap.ExpiresAt,
		State:      snap.Raw,
	})
}

// landStatesResponse is the documented read-all envelope: just the set of
// land numbers with a cached state, not their full snapshots.
type landStatesResponse struct {
	TotalItems  int   `json:"totalItems"`
	CachedLands []int `json:"cachedLands"`
}

func (s *Server) handleLandStates(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.CachedLandIds(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	cachedLands := make([]int, 0, len(ids))
	for _, id := range ids {
		cachedLands = append(cachedLands, int(id))
	}
	sort.Ints(cachedLands)

	writeJSON(w, http.StatusOK, landStatesResponse{
		TotalItems:  len(cachedLands),
		CachedLands: cachedLands,
	})
}
