package services

import (
	"context"
	"fmt"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/ports"
	"github.com/tasktrail/core/internal/store"
)

// DashboardService coordinates the task gateway and the task store for
// the dashboard views: loading the list, submitting the form, deleting,
// toggling completion and driving selection. Reads go through the store;
// writes go gateway-first and are written back to the store only on
// success, so a failure leaves prior state untouched.
type DashboardService struct {
	gateway ports.TaskGateway
	tasks   *store.TaskStore
	logger  *logger.Logger
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(gateway ports.TaskGateway, tasks *store.TaskStore, appLogger *logger.Logger) *DashboardService {
	return &DashboardService{
		gateway: gateway,
		tasks:   tasks,
		logger:  appLogger,
	}
}

// LoadTasks fetches the page described by the store's current filter and
// pagination state. Overlapping loads are sequenced through the store:
// a response belonging to a superseded fetch is discarded.
func (s *DashboardService) LoadTasks(ctx context.Context) error {
	seq := s.tasks.BeginFetch()

	page, err := s.gateway.ListTasks(ctx, s.tasks.Filters(), s.tasks.Pagination())
	if err != nil {
		s.tasks.FailFetch(seq, err.Error())
		return fmt.Errorf("load tasks: %w", err)
	}

	if !s.tasks.CompleteFetch(seq, page.Items, page.Total) {
		s.logger.Debugw("Discarded stale task fetch", "seq", seq)
	}
	return nil
}

// ApplyFilters merges the filter patch, rewinds to the first page and
// reloads.
func (s *DashboardService) ApplyFilters(ctx context.Context, patch store.FilterPatch) error {
	s.tasks.SetFilters(patch)
	first := 1
	s.tasks.SetPagination(store.PaginationPatch{Page: &first})
	return s.LoadTasks(ctx)
}

// GoToPage navigates to a page, clamped to the valid range, and reloads.
func (s *DashboardService) GoToPage(ctx context.Context, page int) error {
	p := s.tasks.Pagination()
	clamped := p.ClampPage(page)
	s.tasks.SetPagination(store.PaginationPatch{Page: &clamped})
	return s.LoadTasks(ctx)
}

// SelectTask loads a task into the detail selection. Passing an ID not in
// the current list is allowed; the task is fetched from the service.
func (s *DashboardService) SelectTask(ctx context.Context, id string) (*entities.Task, error) {
	if t, ok := s.tasks.Task(id); ok {
		s.tasks.SetCurrentTask(&t)
		return &t, nil
	}

	t, err := s.gateway.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}
	s.tasks.SetCurrentTask(t)
	return t, nil
}

// ClearSelection closes the detail view.
func (s *DashboardService) ClearSelection() {
	s.tasks.SetCurrentTask(nil)
}

// BeginEdit prepares the form for editing: the detail selection is
// cleared first so stale detail state cannot show under the open form,
// then the form prefill is returned.
func (s *DashboardService) BeginEdit(ctx context.Context, id string) (*ports.CreateTaskInput, error) {
	s.tasks.SetCurrentTask(nil)

	task, ok := s.tasks.Task(id)
	if !ok {
		t, err := s.gateway.GetTask(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("begin edit: %w", err)
		}
		task = *t
	}

	return &ports.CreateTaskInput{
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		Category:    task.Category,
		DueDate:     task.DueDate,
		Completed:   task.Completed,
	}, nil
}

// SubmitTask is the form's submit path: it creates when editingID is
// empty and updates otherwise. Gateway failures propagate to the caller
// for re-surfacing; the store is only written on success.
func (s *DashboardService) SubmitTask(ctx context.Context, editingID string, input ports.CreateTaskInput) (*entities.Task, error) {
	if editingID == "" {
		created, err := s.gateway.CreateTask(ctx, input)
		if err != nil {
			return nil, err
		}
		s.tasks.AddTask(*created)
		return created, nil
	}

	patch := ports.UpdateTaskPatch{
		Title:       &input.Title,
		Description: &input.Description,
		Status:      &input.Status,
		Priority:    &input.Priority,
		Category:    &input.Category,
		Completed:   &input.Completed,
	}
	if input.DueDate != nil {
		patch.DueDate = input.DueDate
	}

	updated, err := s.gateway.UpdateTask(ctx, editingID, patch)
	if err != nil {
		return nil, err
	}
	s.tasks.UpdateTask(*updated)
	return updated, nil
}

// DeleteTask removes a task after an explicit confirmation step. Without
// confirmation the gateway is never called. On success the task leaves
// the list and the selection is cleared.
func (s *DashboardService) DeleteTask(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return entities.ErrDeleteNotConfirmed
	}

	if err := s.gateway.DeleteTask(ctx, id); err != nil {
		return err
	}

	s.tasks.RemoveTask(id)
	s.tasks.SetCurrentTask(nil)
	return nil
}

// ToggleComplete flips only the completed field through a partial update.
// The store refreshes the selection with the canonical server response
// when the toggled task is currently selected.
func (s *DashboardService) ToggleComplete(ctx context.Context, id string) (*entities.Task, error) {
	task, ok := s.tasks.Task(id)
	if !ok {
		t, err := s.gateway.GetTask(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("toggle complete: %w", err)
		}
		task = *t
	}

	completed := !task.Completed
	updated, err := s.gateway.UpdateTask(ctx, id, ports.UpdateTaskPatch{Completed: &completed})
	if err != nil {
		return nil, err
	}

	s.tasks.UpdateTask(*updated)
	return updated, nil
}

// LoadTags fetches the tags of a task for the detail view.
func (s *DashboardService) LoadTags(ctx context.Context, taskID string) ([]entities.TaskTag, error) {
	tags, err := s.gateway.ListTags(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	return tags, nil
}

// AddTag attaches a tag to a task.
func (s *DashboardService) AddTag(ctx context.Context, input ports.TagInput) (*entities.TaskTag, error) {
	return s.gateway.CreateTag(ctx, input)
}

// RemoveTag deletes a tag.
func (s *DashboardService) RemoveTag(ctx context.Context, tagID string) error {
	return s.gateway.DeleteTag(ctx, tagID)
}
