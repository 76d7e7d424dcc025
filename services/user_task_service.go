package services

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"lifeQuestClient/internal/apiclient"
	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/progress"
	"lifeQuestClient/internal/types/task"
)

const userTasksRoute = "/user-tasks"

// UserTaskKind flips completion locally right away and rolls back on failure.
var UserTaskKind = collection.Kind[task.UserTask]{
	Name:          "user tasks",
	ID:            func(t task.UserTask) string { return t.ID },
	Completed:     func(t task.UserTask) bool { return t.Completed },
	MarkCompleted: func(t task.UserTask) task.UserTask { t.Completed = true; return t },
	Strategy:      collection.StrategyOptimistic,
}

type UserTaskSynchronizer = collection.Synchronizer[task.UserTask, progress.Filter, task.Draft]

// UserTaskService talks to /user-tasks. The backend has no server-side
// filter, so List fetches everything and filters locally.
type UserTaskService struct {
	client *apiclient.Client
}

func NewUserTaskService(client *apiclient.Client) *UserTaskService {
	return &UserTaskService{client: client}
}

func (s *UserTaskService) List(ctx context.Context, filter progress.Filter) ([]task.UserTask, error) {
	var resp task.UserTaskListResponse
	if err := s.client.Get(ctx, userTasksRoute, userTasksRoute, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Tasks == nil {
		return []task.UserTask{}, nil
	}
	return progress.FilterTasks(resp.Tasks, filter), nil
}

// Create validates the draft before anything is sent.
func (s *UserTaskService) Create(ctx context.Context, draft task.Draft) (task.UserTask, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return task.UserTask{}, err
	}

	var created task.UserTask
	if err := s.client.Post(ctx, userTasksRoute, userTasksRoute, draft, &created); err != nil {
		return task.UserTask{}, err
	}
	if created.ID == "" {
		return task.UserTask{}, &apiclient.DecodeError{Path: userTasksRoute, Err: errors.New("created task has no id")}
	}
	return created, nil
}

func (s *UserTaskService) Complete(ctx context.Context, id string) (collection.Completion[task.UserTask], error) {
	path := userTasksRoute + "/" + apiclient.PathID(id) + "/complete"
	var raw json.RawMessage
	if err := s.client.Post(ctx, path, userTasksRoute+"/{id}/complete", nil, &raw); err != nil {
		return collection.Completion[task.UserTask]{}, err
	}
	return decodeCompletion(path, raw, task.UserTask.RewardXP)
}

func (s *UserTaskService) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, userTasksRoute+"/"+apiclient.PathID(id), userTasksRoute+"/{id}")
}

func (s *UserTaskService) Update(ctx context.Context, id string, patch task.Patch) (task.UserTask, error) {
	if err := patch.Validate(); err != nil {
		return task.UserTask{}, err
	}
	var updated task.UserTask
	path := userTasksRoute + "/" + apiclient.PathID(id)
	if err := s.client.Patch(ctx, path, userTasksRoute+"/{id}", patch, &updated); err != nil {
		return task.UserTask{}, err
	}
	return updated, nil
}

// UserTasks bundles the synchronizer with the service for operations the
// synchronizer does not model directly.
type UserTasks struct {
	*UserTaskSynchronizer
	service *UserTaskService
}

func NewUserTasks(client *apiclient.Client, logger *zap.Logger) *UserTasks {
	svc := NewUserTaskService(client)
	return &UserTasks{
		UserTaskSynchronizer: collection.New[task.UserTask, progress.Filter, task.Draft](UserTaskKind, svc, collection.WithLogger(logger)),
		service:              svc,
	}
}

// Create validates the draft before it reaches the synchronizer, so a bad
// form never becomes a mutation error.
func (u *UserTasks) Create(ctx context.Context, draft task.Draft) (task.UserTask, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return task.UserTask{}, err
	}
	return u.UserTaskSynchronizer.Create(ctx, draft)
}

// Update applies patch on the server and replaces the local task with the result.
func (u *UserTasks) Update(ctx context.Context, id string, patch task.Patch) error {
	if patch.Empty() {
		return nil
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	return u.Mutate(ctx, "update", id, func(ctx context.Context) (task.UserTask, error) {
		return u.service.Update(ctx, id, patch)
	})
}
