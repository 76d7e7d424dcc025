package handlers

import (
	"encoding/json"
	"net/http"

	"lifeQuestClient/internal/identity"
	"lifeQuestClient/internal/store"
	"lifeQuestClient/middleware"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// authenticatedUser returns the caller and makes sure their account exists.
func authenticatedUser(w http.ResponseWriter, r *http.Request, s *store.Memory) (identity.User, bool) {
	u, ok := middleware.GetTelegramUser(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return identity.User{}, false
	}
	s.Touch(u)
	return u, true
}
