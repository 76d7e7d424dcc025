package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"lifeQuestClient/internal/store"
	"lifeQuestClient/internal/types/task"
)

type UserTaskHandler struct {
	store *store.Memory
}

func NewUserTaskHandler(s *store.Memory) *UserTaskHandler {
	return &UserTaskHandler{store: s}
}

func (h *UserTaskHandler) GetUserTasks(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, task.UserTaskListResponse{Tasks: h.store.UserTasks(u.ID)})
}

func (h *UserTaskHandler) CreateUserTask(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}

	var req task.Draft
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.store.CreateUserTask(u.ID, req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *UserTaskHandler) UpdateUserTask(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}

	var req task.Patch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.store.UpdateUserTask(u.ID, mux.Vars(r)["id"], req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *UserTaskHandler) CompleteUserTask(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}

	resp, err := h.store.CompleteUserTask(u.ID, mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *UserTaskHandler) DeleteUserTask(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}

	if err := h.store.DeleteUserTask(u.ID, mux.Vars(r)["id"]); err != nil {
		writeStoreError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func writeStoreError(w http.ResponseWriter, err error) {
	var verr *task.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, store.ErrAlreadyCompleted):
		respondWithError(w, http.StatusConflict, "Task already completed")
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
