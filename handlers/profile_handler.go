package handlers

import (
	"encoding/json"
	"net/http"

	"lifeQuestClient/internal/store"
	"lifeQuestClient/internal/types/challenge"
	"lifeQuestClient/internal/types/profile"
)

type ProfileHandler struct {
	store *store.Memory
}

func NewProfileHandler(s *store.Memory) *ProfileHandler {
	return &ProfileHandler{store: s}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, h.store.Profile(u.ID))
}

func (h *ProfileHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, h.store.Stats(u.ID))
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}

	var req profile.Update
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.store.UpdateProfile(u.ID, req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, h.store.Achievements(u.ID))
}

func (h *ProfileHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, h.store.Leaderboard(u.ID))
}

func (h *ProfileHandler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticatedUser(w, r, h.store); !ok {
		return
	}

	typ := challenge.Type(r.URL.Query().Get("type"))
	if typ == "" {
		typ = challenge.TypeWeekly
	}
	if !typ.Valid() {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'type' must be weekly or monthly")
		return
	}
	respondWithJSON(w, http.StatusOK, challenge.ListResponse{Challenges: h.store.Challenges(typ)})
}
