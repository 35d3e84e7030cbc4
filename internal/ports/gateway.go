package ports

import (
	"context"
	"time"

	"github.com/tasktrail/core/internal/domain/entities"
)

// FilterAll is the wildcard value for the enum filter fields.
const FilterAll = "all"

// TaskFilter narrows a task listing. Status, Priority and Category accept
// a concrete value, "all" or "" (the latter two match everything).
// SearchQuery substring-matches title OR description.
type TaskFilter struct {
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	SearchQuery string `json:"searchQuery"`
}

// Pagination is the client-side pagination state: a 1-based page, the page
// size and the server-reported total row count.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Offset converts the 1-based page into the record service's row offset.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageCount derives the number of pages from the server total. A total of
// zero still yields one (empty) page.
func (p Pagination) PageCount() int {
	if p.Limit <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// ClampPage forces page into the valid range [1, PageCount].
func (p Pagination) ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	if max := p.PageCount(); page > max {
		return max
	}
	return page
}

// TaskPage is one page of tasks plus the server total.
type TaskPage struct {
	Items []entities.Task `json:"items"`
	Total int             `json:"total"`
}

// CreateTaskInput carries the task form's fields into a create call.
// Optional fields left zero receive the documented defaults.
type CreateTaskInput struct {
	Title       string              `json:"title" validate:"required"`
	Description string              `json:"description"`
	Status      entities.TaskStatus `json:"status"`
	Priority    entities.Priority   `json:"priority"`
	Category    string              `json:"category"`
	DueDate     *time.Time          `json:"due_date,omitempty"`
	Completed   bool                `json:"completed"`
}

// UpdateTaskPatch is a partial task update: only non-nil fields are sent.
// updated_at is always refreshed by the gateway regardless of the patch.
type UpdateTaskPatch struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *entities.TaskStatus `json:"status,omitempty"`
	Priority    *entities.Priority   `json:"priority,omitempty"`
	Category    *string              `json:"category,omitempty"`
	DueDate     *time.Time           `json:"due_date,omitempty"`
	Completed   *bool                `json:"completed,omitempty"`
}

// TagInput creates a tag on a task.
type TagInput struct {
	TaskID  string            `json:"task_id" validate:"required"`
	TagName string            `json:"tag_name" validate:"required"`
	Color   entities.TagColor `json:"color"`
}

// TaskGateway translates task CRUD intents into record-service calls.
// Every operation requires an initialized record client; a nil client is
// a fatal precondition failure, not retried. Failures surface verbatim to
// the caller, which owns user-facing messaging.
type TaskGateway interface {
	ListTasks(ctx context.Context, filter TaskFilter, page Pagination) (*TaskPage, error)
	GetTask(ctx context.Context, id string) (*entities.Task, error)
	ListTags(ctx context.Context, taskID string) ([]entities.TaskTag, error)
	CreateTask(ctx context.Context, input CreateTaskInput) (*entities.Task, error)
	UpdateTask(ctx context.Context, id string, patch UpdateTaskPatch) (*entities.Task, error)
	DeleteTask(ctx context.Context, id string) error
	CreateTag(ctx context.Context, input TagInput) (*entities.TaskTag, error)
	DeleteTag(ctx context.Context, tagID string) error
}
