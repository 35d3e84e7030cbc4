// Package http exposes the dashboard, form and detail views as JSON
// endpoints: handlers render store state and forward user intents to the
// services.
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tasktrail/core/internal/application/services"
	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/ports"
	"github.com/tasktrail/core/internal/store"
)

// MessageResponse is a plain message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthHandler handles the login/signup/logout views. Rendering of the
// credential form is the caller's concern; these endpoints only submit
// credentials to the identity service and report success or failure.
type AuthHandler struct {
	auth   *services.AuthService
	users  *store.UserStore
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *services.AuthService, users *store.UserStore, appLogger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		users:  users,
		logger: appLogger,
	}
}

// Login handles credential submission from the login view.
func (h *AuthHandler) Login(c echo.Context) error {
	var creds ports.Credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.auth.Login(c.Request().Context(), creds)
	if err != nil {
		h.logger.Errorw("Login failed", "error", err, "email", creds.Email)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	return c.JSON(http.StatusOK, user)
}

// Signup handles registration from the signup view.
func (h *AuthHandler) Signup(c echo.Context) error {
	var input ports.SignupInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.auth.Signup(c.Request().Context(), input)
	if err != nil {
		h.logger.Errorw("Signup failed", "error", err, "email", input.Email)
		return echo.NewHTTPError(http.StatusBadRequest, "Signup failed")
	}

	return c.JSON(http.StatusCreated, user)
}

// Logout ends the session.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context()); err != nil {
		if errors.Is(err, entities.ErrNotAuthenticated) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not signed in")
		}
		// Local state is already cleared; report but keep going.
		h.logger.Warnw("Logout completed with remote error", "error", err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Signed out"})
}

// Me returns the authenticated profile.
func (h *AuthHandler) Me(c echo.Context) error {
	user := h.users.User()
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not signed in")
	}
	return c.JSON(http.StatusOK, user)
}

// listResponse renders the task list view's state.
type listResponse struct {
	Items      []entities.Task  `json:"items"`
	Filters    ports.TaskFilter `json:"filters"`
	Pagination ports.Pagination `json:"pagination"`
	PageCount  int              `json:"pageCount"`
	IsLoading  bool             `json:"isLoading"`
	Error      string           `json:"error,omitempty"`
}

// detailResponse renders the detail view: the selected task plus its tags.
type detailResponse struct {
	Task *entities.Task     `json:"task"`
	Tags []entities.TaskTag `json:"tags"`
}

// TaskHandler handles the task list, form and detail views.
type TaskHandler struct {
	dashboard *services.DashboardService
	tasks     *store.TaskStore
	logger    *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(dashboard *services.DashboardService, tasks *store.TaskStore, appLogger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		dashboard: dashboard,
		tasks:     tasks,
		logger:    appLogger,
	}
}

// ListTasks applies filter/page parameters when present and renders the
// list state. A gateway failure is reflected in the rendered error state
// as well as the response code.
func (h *TaskHandler) ListTasks(c echo.Context) error {
	patch := filterPatchFromQuery(c)
	ctx := c.Request().Context()

	var err error
	switch {
	case patch != nil:
		err = h.dashboard.ApplyFilters(ctx, *patch)
	case c.QueryParam("page") != "":
		page, perr := strconv.Atoi(c.QueryParam("page"))
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid page")
		}
		err = h.dashboard.GoToPage(ctx, page)
	default:
		err = h.dashboard.LoadTasks(ctx)
	}
	if err != nil {
		h.logger.Errorw("List tasks failed", "error", err)
		return err
	}

	return c.JSON(http.StatusOK, h.renderList())
}

func (h *TaskHandler) renderList() listResponse {
	p := h.tasks.Pagination()
	return listResponse{
		Items:      h.tasks.Tasks(),
		Filters:    h.tasks.Filters(),
		Pagination: p,
		PageCount:  p.PageCount(),
		IsLoading:  h.tasks.IsLoading(),
		Error:      h.tasks.Error(),
	}
}

func filterPatchFromQuery(c echo.Context) *store.FilterPatch {
	var patch store.FilterPatch
	found := false

	for name, dest := range map[string]**string{
		"status":      &patch.Status,
		"priority":    &patch.Priority,
		"category":    &patch.Category,
		"searchQuery": &patch.SearchQuery,
	} {
		if params := c.QueryParams(); params.Has(name) {
			v := params.Get(name)
			*dest = &v
			found = true
		}
	}

	if !found {
		return nil
	}
	return &patch
}

// GetTask selects a task and renders the detail view with its tags.
func (h *TaskHandler) GetTask(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	task, err := h.dashboard.SelectTask(ctx, id)
	if err != nil {
		return err
	}

	tags, err := h.dashboard.LoadTags(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, detailResponse{Task: task, Tags: tags})
}

// ClearSelection closes the detail view.
func (h *TaskHandler) ClearSelection(c echo.Context) error {
	h.dashboard.ClearSelection()
	return c.NoContent(http.StatusNoContent)
}

// EditTask opens the form pre-filled for editing.
func (h *TaskHandler) EditTask(c echo.Context) error {
	prefill, err := h.dashboard.BeginEdit(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prefill)
}

// CreateTask submits the form for a new task.
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var input ports.CreateTaskInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.dashboard.SubmitTask(c.Request().Context(), "", input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, task)
}

// UpdateTask submits the form for an existing task.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	var input ports.CreateTaskInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.dashboard.SubmitTask(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task. The confirm parameter carries the user's
// answer to the confirmation dialog; without it the delete is refused.
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	confirmed := c.QueryParam("confirm") == "true"

	err := h.dashboard.DeleteTask(c.Request().Context(), c.Param("id"), confirmed)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}

// ToggleComplete flips the completed flag of a task.
func (h *TaskHandler) ToggleComplete(c echo.Context) error {
	task, err := h.dashboard.ToggleComplete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

// ListTags renders a task's tags.
func (h *TaskHandler) ListTags(c echo.Context) error {
	tags, err := h.dashboard.LoadTags(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

// CreateTag attaches a tag to a task.
func (h *TaskHandler) CreateTag(c echo.Context) error {
	var input ports.TagInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tag, err := h.dashboard.AddTag(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, tag)
}

// DeleteTag removes a tag.
func (h *TaskHandler) DeleteTag(c echo.Context) error {
	if err := h.dashboard.RemoveTag(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
