package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/localstore"
	"github.com/tasktrail/core/internal/infrastructure/logger"
)

// ShellHandler serves the top-level shell concerns: the theme flag and
// the static option lists the form renders.
type ShellHandler struct {
	state  *localstore.Store
	logger *logger.Logger
}

// NewShellHandler creates a new shell handler
func NewShellHandler(state *localstore.Store, appLogger *logger.Logger) *ShellHandler {
	return &ShellHandler{
		state:  state,
		logger: appLogger,
	}
}

type themeResponse struct {
	DarkMode bool `json:"darkMode"`
}

// GetTheme returns the persisted theme flag. A corrupt or missing value
// falls back to the default (light).
func (h *ShellHandler) GetTheme(c echo.Context) error {
	var dark bool
	if _, err := h.state.Get(localstore.KeyDarkMode, &dark); err != nil {
		h.logger.Warnw("Discarding corrupt theme flag", "error", err)
		dark = false
	}

	return c.JSON(http.StatusOK, themeResponse{DarkMode: dark})
}

// ToggleTheme flips and persists the theme flag. Persistence is
// best-effort; a write failure still flips the in-memory answer.
func (h *ShellHandler) ToggleTheme(c echo.Context) error {
	var dark bool
	if _, err := h.state.Get(localstore.KeyDarkMode, &dark); err != nil {
		dark = false
	}

	dark = !dark
	if err := h.state.Set(localstore.KeyDarkMode, dark); err != nil {
		h.logger.Warnw("Failed to persist theme flag", "error", err)
	}

	return c.JSON(http.StatusOK, themeResponse{DarkMode: dark})
}

type optionsResponse struct {
	Statuses   []entities.TaskStatus `json:"statuses"`
	Priorities []entities.Priority   `json:"priorities"`
	Categories []string              `json:"categories"`
	TagColors  []entities.TagColor   `json:"tagColors"`
}

// FormOptions returns the option lists rendered by the task form.
func (h *ShellHandler) FormOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, optionsResponse{
		Statuses: []entities.TaskStatus{
			entities.TaskStatusTodo,
			entities.TaskStatusInProgress,
			entities.TaskStatusCompleted,
		},
		Priorities: []entities.Priority{
			entities.PriorityLow,
			entities.PriorityMedium,
			entities.PriorityHigh,
			entities.PriorityUrgent,
		},
		Categories: entities.CategoryOptions(),
		TagColors: []entities.TagColor{
			entities.TagColorRed,
			entities.TagColorOrange,
			entities.TagColorYellow,
			entities.TagColorGreen,
			entities.TagColorBlue,
			entities.TagColorPurple,
			entities.TagColorGray,
		},
	})
}
