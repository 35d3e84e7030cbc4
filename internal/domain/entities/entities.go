package entities

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrClientNotInitialized = errors.New("record client not initialized")
	ErrRecordNotFound       = errors.New("record not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrTagNotFound          = errors.New("tag not found")
	ErrTitleRequired        = errors.New("title is required")
	ErrDueDateInPast        = errors.New("due date cannot be in the past")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrDeleteNotConfirmed   = errors.New("delete not confirmed")
	ErrNotAuthenticated     = errors.New("not authenticated")
)

// RemoteError carries a record- or identity-service failure back to the
// caller verbatim. Remote failures are never retried.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: remote operation failed (status %d)", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Enums and types
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "To Do"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

type TagColor string

const (
	TagColorRed    TagColor = "red"
	TagColorOrange TagColor = "orange"
	TagColorYellow TagColor = "yellow"
	TagColorGreen  TagColor = "green"
	TagColorBlue   TagColor = "blue"
	TagColorPurple TagColor = "purple"
	TagColorGray   TagColor = "gray"
)

// DefaultCategory is applied when a task is created without one.
const DefaultCategory = "Work"

// CategoryOptions returns the category labels offered by the task form.
// Category itself is a free-form label; this list is a convenience only.
func CategoryOptions() []string {
	return []string{"Work", "Personal", "Study", "Health", "Finance", "Home", "Other"}
}

// Task represents a task record as stored by the record service.
// Field names on the wire follow the service's schema: the identity
// column is "Id", everything else is lower snake case.
type Task struct {
	ID          string     `json:"Id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsOverdue reports whether the task's due date has passed without the
// task being completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return now.After(*t.DueDate) && !t.Completed
}

// TaskTag is a display label attached to a task. Tags reference their
// task by ID only; the color is used for display and nothing else.
type TaskTag struct {
	ID      string   `json:"Id"`
	TaskID  string   `json:"task_id"`
	TagName string   `json:"tag_name"`
	Color   TagColor `json:"color"`
}

// User is the authenticated principal as reported by the identity service.
type User struct {
	ID        string `json:"Id"`
	Name      string `json:"Name"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Email     string `json:"Email"`
	AvatarURL string `json:"AvatarUrl"`
}

// DisplayName returns the user's full name, falling back to the email
// address when no name is set.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.Name != "":
		return u.Name
	default:
		return u.Email
	}
}

// Utility methods
func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

func (c TagColor) IsValid() bool {
	switch c {
	case TagColorRed, TagColorOrange, TagColorYellow, TagColorGreen, TagColorBlue, TagColorPurple, TagColorGray:
		return true
	default:
		return false
	}
}
