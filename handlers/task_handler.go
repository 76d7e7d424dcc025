package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"lifeQuestClient/internal/store"
	"lifeQuestClient/internal/types/task"
)

type TaskHandler struct {
	store *store.Memory
	// param is the query parameter carrying the period: "type" or "period".
	param string
}

func NewTaskHandler(s *store.Memory, param string) *TaskHandler {
	return &TaskHandler{store: s, param: param}
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}

	period := task.Period(r.URL.Query().Get(h.param))
	if period == "" {
		period = task.PeriodDaily
	}
	if !period.Valid() {
		respondWithError(w, http.StatusBadRequest, "Query parameter '"+h.param+"' must be daily, weekly or monthly")
		return
	}

	tasks, total := h.store.Tasks(u.ID, period)
	respondWithJSON(w, http.StatusOK, task.ListResponse{Tasks: tasks, TotalXP: &total})
}

func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	u, ok := authenticatedUser(w, r, h.store)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	t, _, err := h.store.CompleteTask(u.ID, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Task not found")
		return
	case errors.Is(err, store.ErrAlreadyCompleted):
		respondWithError(w, http.StatusConflict, "Task already completed")
		return
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}
