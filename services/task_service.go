package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"lifeQuestClient/internal/apiclient"
	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/types/task"
)

// TaskEndpoints names the list path and the query parameter that carries the
// period. The dashboard and the system-task screen use different pairs.
type TaskEndpoints struct {
	Base  string
	Param string
}

var (
	DashboardEndpoints  = TaskEndpoints{Base: "/tasks", Param: "type"}
	SystemTaskEndpoints = TaskEndpoints{Base: "/system-tasks", Param: "period"}
)

// TaskKind completes system tasks only after the server answers; the server
// decides how much XP a task is worth.
var TaskKind = collection.Kind[task.Task]{
	Name:          "tasks",
	ID:            func(t task.Task) string { return t.ID },
	Completed:     func(t task.Task) bool { return t.Completed },
	MarkCompleted: func(t task.Task) task.Task { t.Completed = true; return t },
	Strategy:      collection.StrategyConfirmed,
}

type TaskSynchronizer = collection.Synchronizer[task.Task, task.Period, struct{}]

type TaskService struct {
	client    *apiclient.Client
	endpoints TaskEndpoints

	mu      sync.Mutex
	totalXP *int
}

func NewTaskService(client *apiclient.Client, endpoints TaskEndpoints) *TaskService {
	return &TaskService{client: client, endpoints: endpoints}
}

func (s *TaskService) List(ctx context.Context, period task.Period) ([]task.Task, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("unknown period %q", period)
	}

	var resp task.ListResponse
	query := url.Values{s.endpoints.Param: {string(period)}}
	if err := s.client.Get(ctx, s.endpoints.Base, s.endpoints.Base, query, &resp); err != nil {
		return nil, err
	}
	if resp.Tasks == nil {
		resp.Tasks = []task.Task{}
	}

	if resp.TotalXP != nil {
		s.mu.Lock()
		total := *resp.TotalXP
		s.totalXP = &total
		s.mu.Unlock()
	}
	return resp.Tasks, nil
}

func (s *TaskService) Complete(ctx context.Context, id string) (collection.Completion[task.Task], error) {
	path := s.endpoints.Base + "/" + apiclient.PathID(id) + "/complete"
	var raw json.RawMessage
	if err := s.client.Post(ctx, path, s.endpoints.Base+"/{id}/complete", nil, &raw); err != nil {
		return collection.Completion[task.Task]{}, err
	}

	res, err := decodeCompletion(path, raw, task.Task.RewardXP)
	if err != nil {
		return res, err
	}
	if res.TotalXP != nil {
		s.mu.Lock()
		total := *res.TotalXP
		s.totalXP = &total
		s.mu.Unlock()
	}
	return res, nil
}

// TotalXP is the last account total the server reported, if any.
func (s *TaskService) TotalXP() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalXP == nil {
		return 0, false
	}
	return *s.totalXP, true
}

// NewDashboard wires a task synchronizer to the given endpoint set.
func NewDashboard(client *apiclient.Client, endpoints TaskEndpoints, logger *zap.Logger) (*TaskSynchronizer, *TaskService) {
	svc := NewTaskService(client, endpoints)
	return collection.New[task.Task, task.Period, struct{}](TaskKind, svc, collection.WithLogger(logger)), svc
}
