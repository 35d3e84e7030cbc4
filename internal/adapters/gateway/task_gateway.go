// Package gateway translates task CRUD intents into record-service calls,
// shaping filters, pagination and field lists for each table.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/ports"
)

// Record-service table names.
const (
	taskTable = "task"
	tagTable  = "task_tag"
)

var taskFields = []string{
	"Id", "title", "description", "status", "priority",
	"category", "due_date", "completed", "created_at", "updated_at",
}

var tagFields = []string{"Id", "task_id", "tag_name", "color"}

// Gateway implements ports.TaskGateway over a record client. Failures are
// surfaced verbatim to the caller; nothing here retries.
type Gateway struct {
	records  ports.RecordClient
	validate *validator.Validate
	logger   *logger.Logger
	now      func() time.Time
}

// New creates a task gateway.
func New(records ports.RecordClient, appLogger *logger.Logger) *Gateway {
	return &Gateway{
		records:  records,
		validate: validator.New(),
		logger:   appLogger,
		now:      time.Now,
	}
}

// checkClient guards every operation: an uninitialized record client is a
// fatal precondition failure, never retried.
func (g *Gateway) checkClient() error {
	if g.records == nil {
		return entities.ErrClientNotInitialized
	}
	return nil
}

// buildFilter translates the view's filter state into the record
// service's condition grammar: enum fields as eq leaves ANDed together,
// plus an OR over title/description contains when a search query is set.
// Returns nil when no filter is active.
func buildFilter(f ports.TaskFilter) *ports.Condition {
	var conditions []ports.Condition

	if active(f.Status) {
		conditions = append(conditions, ports.Eq("status", f.Status))
	}
	if active(f.Priority) {
		conditions = append(conditions, ports.Eq("priority", f.Priority))
	}
	if active(f.Category) {
		conditions = append(conditions, ports.Eq("category", f.Category))
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, ports.Or(
			ports.Contains("title", f.SearchQuery),
			ports.Contains("description", f.SearchQuery),
		))
	}

	if len(conditions) == 0 {
		return nil
	}

	combined := ports.And(conditions...)
	return &combined
}

func active(v string) bool {
	return v != "" && v != ports.FilterAll
}

// ListTasks fetches one page of tasks ordered newest first. The stable
// creation-time order keeps pagination deterministic.
func (g *Gateway) ListTasks(ctx context.Context, filter ports.TaskFilter, page ports.Pagination) (*ports.TaskPage, error) {
	if err := g.checkClient(); err != nil {
		return nil, err
	}

	query := ports.RecordQuery{
		Fields: taskFields,
		Filter: buildFilter(filter),
		Paging: &ports.PagingInfo{
			Limit:  page.Limit,
			Offset: page.Offset(),
		},
		OrderBy: []ports.OrderBy{{Field: "created_at", Direction: "desc"}},
	}

	result, err := g.records.FetchRecords(ctx, taskTable, query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]entities.Task, 0, len(result.Data))
	for _, raw := range result.Data {
		var t entities.Task
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("decode task record: %w", err)
		}
		tasks = append(tasks, t)
	}

	return &ports.TaskPage{Items: tasks, Total: result.Total}, nil
}

// GetTask retrieves a single task by ID.
func (g *Gateway) GetTask(ctx context.Context, id string) (*entities.Task, error) {
	if err := g.checkClient(); err != nil {
		return nil, err
	}

	raw, err := g.records.FetchRecord(ctx, taskTable, id)
	if err != nil {
		if errors.Is(err, entities.ErrRecordNotFound) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}

	var t entities.Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode task record: %w", err)
	}

	return &t, nil
}

// ListTags returns the tags attached to a task. An empty result is valid,
// not an error.
func (g *Gateway) ListTags(ctx context.Context, taskID string) ([]entities.TaskTag, error) {
	if err := g.checkClient(); err != nil {
		return nil, err
	}

	filter := ports.Eq("task_id", taskID)
	query := ports.RecordQuery{
		Fields: tagFields,
		Filter: &filter,
	}

	result, err := g.records.FetchRecords(ctx, tagTable, query)
	if err != nil {
		return nil, fmt.Errorf("list tags for task %s: %w", taskID, err)
	}

	tags := make([]entities.TaskTag, 0, len(result.Data))
	for _, raw := range result.Data {
		var tag entities.TaskTag
		if err := json.Unmarshal(raw, &tag); err != nil {
			return nil, fmt.Errorf("decode tag record: %w", err)
		}
		tags = append(tags, tag)
	}

	return tags, nil
}

// CreateTask validates the form input, fills defaults for unset optional
// fields, stamps both timestamps and delegates to the record service.
// Validation failures block the call before any network traffic.
func (g *Gateway) CreateTask(ctx context.Context, input ports.CreateTaskInput) (*entities.Task, error) {
	if err := g.checkClient(); err != nil {
		return nil, err
	}

	if err := g.validateCreate(input); err != nil {
		return nil, err
	}

	now := g.now().UTC()
	rec := entities.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		Category:    input.Category,
		DueDate:     input.DueDate,
		Completed:   input.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if rec.Status == "" {
		rec.Status = entities.TaskStatusTodo
	}
	if rec.Priority == "" {
		rec.Priority = entities.PriorityMedium
	}
	if rec.Category == "" {
		rec.Category = entities.DefaultCategory
	}

	raw, err := g.records.CreateRecord(ctx, taskTable, rec)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	var created entities.Task
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("decode created task: %w", err)
	}

	g.logger.Infow("Task created", "task_id", created.ID, "title", created.Title)

	return &created, nil
}

func (g *Gateway) validateCreate(input ports.CreateTaskInput) error {
	if err := g.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Title" {
					return entities.ErrTitleRequired
				}
			}
		}
		return err
	}

	if input.Status != "" && !input.Status.IsValid() {
		return entities.ErrInvalidStatus
	}
	if input.Priority != "" && !input.Priority.IsValid() {
		return entities.ErrInvalidPriority
	}

	// The past-due check compares calendar days, not instants, matching
	// what the date picker lets the user choose.
	if input.DueDate != nil {
		now := g.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if input.DueDate.Before(today) {
			return entities.ErrDueDateInPast
		}
	}

	return nil
}

// UpdateTask merges only the provided fields into the record and always
// refreshes updated_at.
func (g *Gateway) UpdateTask(ctx context.Context, id string, patch ports.UpdateTaskPatch) (*entities.Task, error) {
	if err := g.checkClient(); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"updated_at": g.now().UTC(),
	}
	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, entities.ErrTitleRequired
		}
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return nil, entities.ErrInvalidStatus
		}
		fields["status"] = *patch.Status
	}
	if patch.Priority != nil {
		if !patch.Priority.IsValid() {
			return nil, entities.ErrInvalidPriority
		}
		fields["priority"] = *patch.Priority
	}
	if patch.Category != nil {
		fields["category"] = *patch.Category
	}
	if patch.DueDate != nil {
		fields["due_date"] = *patch.DueDate
	}
	if patch.Completed != nil {
		fields["completed"] = *patch.Completed
	}

	raw, err := g.records.UpdateRecord(ctx, taskTable, id, fields)
	if err != nil {
		if errors.Is(err, entities.ErrRecordNotFound) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}

	var updated entities.Task
	if err := json.Unmarshal(raw, &updated); err != nil {
		return nil, fmt.Errorf("decode updated task: %w", err)
	}

	g.logger.Infow("Task updated", "task_id", updated.ID)

	return &updated, nil
}

// DeleteTask hard-deletes a task and cascades to its tags so no orphaned
// tag records accumulate. Tag cleanup runs first; a failure there leaves
// the task in place and surfaces to the caller.
func (g *Gateway) DeleteTask(ctx context.Context, id string) error {
	if err := g.checkClient(); err != nil {
		return err
	}

	tags, err := g.ListTags(ctx, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	for _, tag := range tags {
		if err := g.records.DeleteRecord(ctx, tagTable, tag.ID); err != nil {
			return fmt.Errorf("delete tag %s of task %s: %w", tag.ID, id, err)
		}
	}

	if err := g.records.DeleteRecord(ctx, taskTable, id); err != nil {
		if errors.Is(err, entities.ErrRecordNotFound) {
			return entities.ErrTaskNotFound
		}
		return fmt.Errorf("delete task %s: %w", id, err)
	}

	g.logger.Infow("Task deleted", "task_id", id, "tags_removed", len(tags))

	return nil
}

// CreateTag attaches a tag to a task.
func (g *Gateway) CreateTag(ctx context.Context, input ports.TagInput) (*entities.TaskTag, error) {
	if err := g.checkClient(); err != nil {
		return nil, err
	}

	if err := g.validate.Struct(input); err != nil {
		return nil, err
	}

	rec := entities.TaskTag{
		TaskID:  input.TaskID,
		TagName: input.TagName,
		Color:   input.Color,
	}
	if rec.Color == "" {
		rec.Color = entities.TagColorGray
	}

	raw, err := g.records.CreateRecord(ctx, tagTable, rec)
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}

	var created entities.TaskTag
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("decode created tag: %w", err)
	}

	return &created, nil
}

// DeleteTag removes a tag.
func (g *Gateway) DeleteTag(ctx context.Context, tagID string) error {
	if err := g.checkClient(); err != nil {
		return err
	}

	if err := g.records.DeleteRecord(ctx, tagTable, tagID); err != nil {
		if errors.Is(err, entities.ErrRecordNotFound) {
			return entities.ErrTagNotFound
		}
		return fmt.Errorf("delete tag %s: %w", tagID, err)
	}
	return nil
}
