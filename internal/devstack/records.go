package devstack

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tasktrail/core/internal/ports"
)

// Wire-name to column mappings. Only whitelisted fields ever reach SQL;
// anything else in a filter or record is rejected.
var taskColumns = map[string]string{
	"Id":          "id",
	"title":       "title",
	"description": "description",
	"status":      "status",
	"priority":    "priority",
	"category":    "category",
	"due_date":    "due_date",
	"completed":   "completed",
	"created_at":  "created_at",
	"updated_at":  "updated_at",
}

var tagColumns = map[string]string{
	"Id":       "id",
	"task_id":  "task_id",
	"tag_name": "tag_name",
	"color":    "color",
}

type taskRow struct {
	ID          string     `db:"id" json:"Id"`
	OwnerID     string     `db:"owner_id" json:"-"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Status      string     `db:"status" json:"status"`
	Priority    string     `db:"priority" json:"priority"`
	Category    string     `db:"category" json:"category"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	Completed   bool       `db:"completed" json:"completed"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type tagRow struct {
	ID      string `db:"id" json:"Id"`
	OwnerID string `db:"owner_id" json:"-"`
	TaskID  string `db:"task_id" json:"task_id"`
	TagName string `db:"tag_name" json:"tag_name"`
	Color   string `db:"color" json:"color"`
}

type recordEnvelope struct {
	Record map[string]interface{} `json:"record"`
}

type pageResponse struct {
	Data  interface{} `json:"data"`
	Total int         `json:"totalRecordCount"`
}

type recordResponse struct {
	Data interface{} `json:"data"`
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, map[string]string{"message": "record not found"})
}

func unknownTable(c echo.Context) error {
	return c.JSON(http.StatusNotFound, map[string]string{"message": "unknown table"})
}

// compileCondition turns a filter tree into a SQL predicate. Substring
// matching uses instr so it stays case-sensitive; LIKE would not be.
func compileCondition(cond ports.Condition, columns map[string]string) (string, []interface{}, error) {
	switch {
	case len(cond.And) > 0:
		return compileGroup(cond.And, " AND ", columns)
	case len(cond.Or) > 0:
		return compileGroup(cond.Or, " OR ", columns)
	}

	column, ok := columns[cond.Field]
	if !ok {
		return "", nil, fmt.Errorf("unknown filter field %q", cond.Field)
	}

	switch cond.Operator {
	case ports.OpEq:
		return column + " = ?", []interface{}{cond.Value}, nil
	case ports.OpContains:
		return "instr(" + column + ", ?) > 0", []interface{}{cond.Value}, nil
	default:
		return "", nil, fmt.Errorf("unknown operator %q", cond.Operator)
	}
}

func compileGroup(conditions []ports.Condition, joiner string, columns map[string]string) (string, []interface{}, error) {
	parts := make([]string, 0, len(conditions))
	var args []interface{}

	for _, child := range conditions {
		clause, childArgs, err := compileCondition(child, columns)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, clause)
		args = append(args, childArgs...)
	}

	return "(" + strings.Join(parts, joiner) + ")", args, nil
}

func (s *Server) handleQuery(c echo.Context) error {
	var query ports.RecordQuery
	if err := c.Bind(&query); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query format")
	}

	switch c.Param("table") {
	case "task":
		return s.queryTasks(c, query)
	case "task_tag":
		return s.queryTags(c, query)
	default:
		return unknownTable(c)
	}
}

func buildQuerySQL(base string, query ports.RecordQuery, columns map[string]string) (string, string, []interface{}, error) {
	where := "WHERE owner_id = ?"
	var filterArgs []interface{}

	if query.Filter != nil {
		clause, args, err := compileCondition(*query.Filter, columns)
		if err != nil {
			return "", "", nil, err
		}
		where += " AND " + clause
		filterArgs = args
	}

	selectSQL := base + " " + where

	if len(query.OrderBy) > 0 {
		clauses := make([]string, 0, len(query.OrderBy))
		for _, ob := range query.OrderBy {
			column, ok := columns[ob.Field]
			if !ok {
				return "", "", nil, fmt.Errorf("unknown sort field %q", ob.Field)
			}
			direction := "ASC"
			if strings.EqualFold(ob.Direction, "desc") {
				direction = "DESC"
			}
			clauses = append(clauses, column+" "+direction)
		}
		selectSQL += " ORDER BY " + strings.Join(clauses, ", ")
	}

	if query.Paging != nil {
		selectSQL += fmt.Sprintf(" LIMIT %d OFFSET %d", query.Paging.Limit, query.Paging.Offset)
	}

	return selectSQL, where, filterArgs, nil
}

func (s *Server) queryTasks(c echo.Context, query ports.RecordQuery) error {
	selectSQL, where, filterArgs, err := buildQuerySQL("SELECT * FROM tasks", query, taskColumns)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	args := append([]interface{}{ownerID(c)}, filterArgs...)

	rows := []taskRow{}
	if err := s.db.Select(&rows, selectSQL, args...); err != nil {
		s.logger.Errorw("Task query failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Query failed")
	}

	var total int
	if err := s.db.Get(&total, "SELECT COUNT(*) FROM tasks "+where, args...); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Count failed")
	}

	return c.JSON(http.StatusOK, pageResponse{Data: rows, Total: total})
}

func (s *Server) queryTags(c echo.Context, query ports.RecordQuery) error {
	selectSQL, where, filterArgs, err := buildQuerySQL("SELECT * FROM task_tags", query, tagColumns)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	args := append([]interface{}{ownerID(c)}, filterArgs...)

	rows := []tagRow{}
	if err := s.db.Select(&rows, selectSQL, args...); err != nil {
		s.logger.Errorw("Tag query failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Query failed")
	}

	var total int
	if err := s.db.Get(&total, "SELECT COUNT(*) FROM task_tags "+where, args...); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Count failed")
	}

	return c.JSON(http.StatusOK, pageResponse{Data: rows, Total: total})
}

func (s *Server) handleGetRecord(c echo.Context) error {
	switch c.Param("table") {
	case "task":
		var row taskRow
		err := s.db.Get(&row, "SELECT * FROM tasks WHERE id = ? AND owner_id = ?", c.Param("id"), ownerID(c))
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(c)
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load record")
		}
		return c.JSON(http.StatusOK, recordResponse{Data: row})
	case "task_tag":
		var row tagRow
		err := s.db.Get(&row, "SELECT * FROM task_tags WHERE id = ? AND owner_id = ?", c.Param("id"), ownerID(c))
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(c)
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load record")
		}
		return c.JSON(http.StatusOK, recordResponse{Data: row})
	default:
		return unknownTable(c)
	}
}

func (s *Server) handleCreateRecord(c echo.Context) error {
	var envelope recordEnvelope
	if err := c.Bind(&envelope); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	switch c.Param("table") {
	case "task":
		return s.createTask(c, envelope.Record)
	case "task_tag":
		return s.createTag(c, envelope.Record)
	default:
		return unknownTable(c)
	}
}

func (s *Server) createTask(c echo.Context, record map[string]interface{}) error {
	row := taskRow{
		ID:          uuid.New().String(),
		OwnerID:     ownerID(c),
		Title:       stringField(record, "title"),
		Description: stringField(record, "description"),
		Status:      stringField(record, "status"),
		Priority:    stringField(record, "priority"),
		Category:    stringField(record, "category"),
		Completed:   boolField(record, "completed"),
		CreatedAt:   timeField(record, "created_at", time.Now().UTC()),
		UpdatedAt:   timeField(record, "updated_at", time.Now().UTC()),
	}
	if due, ok := optionalTimeField(record, "due_date"); ok {
		row.DueDate = &due
	}

	if row.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	_, err := s.db.NamedExec(`
		INSERT INTO tasks (id, owner_id, title, description, status, priority, category, due_date, completed, created_at, updated_at)
		VALUES (:id, :owner_id, :title, :description, :status, :priority, :category, :due_date, :completed, :created_at, :updated_at)`, row)
	if err != nil {
		s.logger.Errorw("Task insert failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create record")
	}

	return c.JSON(http.StatusCreated, recordResponse{Data: row})
}

func (s *Server) createTag(c echo.Context, record map[string]interface{}) error {
	row := tagRow{
		ID:      uuid.New().String(),
		OwnerID: ownerID(c),
		TaskID:  stringField(record, "task_id"),
		TagName: stringField(record, "tag_name"),
		Color:   stringField(record, "color"),
	}

	if row.TaskID == "" || row.TagName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "task_id and tag_name are required")
	}

	_, err := s.db.NamedExec(`
		INSERT INTO task_tags (id, owner_id, task_id, tag_name, color)
		VALUES (:id, :owner_id, :task_id, :tag_name, :color)`, row)
	if err != nil {
		s.logger.Errorw("Tag insert failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create record")
	}

	return c.JSON(http.StatusCreated, recordResponse{Data: row})
}

func (s *Server) handleUpdateRecord(c echo.Context) error {
	var envelope recordEnvelope
	if err := c.Bind(&envelope); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	var (
		tableName string
		columns   map[string]string
	)
	switch c.Param("table") {
	case "task":
		tableName, columns = "tasks", taskColumns
	case "task_tag":
		tableName, columns = "task_tags", tagColumns
	default:
		return unknownTable(c)
	}

	sets := make([]string, 0, len(envelope.Record))
	args := make([]interface{}, 0, len(envelope.Record)+2)
	for field, value := range envelope.Record {
		if field == "Id" {
			continue
		}
		column, ok := columns[field]
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown field %q", field))
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if len(sets) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No fields to update")
	}

	args = append(args, c.Param("id"), ownerID(c))
	result, err := s.db.Exec(
		"UPDATE "+tableName+" SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?",
		args...,
	)
	if err != nil {
		s.logger.Errorw("Record update failed", "error", err, "table", tableName)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update record")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return notFound(c)
	}

	return s.handleGetRecord(c)
}

func (s *Server) handleDeleteRecord(c echo.Context) error {
	var tableName string
	switch c.Param("table") {
	case "task":
		tableName = "tasks"
	case "task_tag":
		tableName = "task_tags"
	default:
		return unknownTable(c)
	}

	result, err := s.db.Exec(
		"DELETE FROM "+tableName+" WHERE id = ? AND owner_id = ?",
		c.Param("id"), ownerID(c),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete record")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return notFound(c)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "record deleted"})
}

func stringField(record map[string]interface{}, key string) string {
	v, _ := record[key].(string)
	return v
}

func boolField(record map[string]interface{}, key string) bool {
	v, _ := record[key].(bool)
	return v
}

func timeField(record map[string]interface{}, key string, fallback time.Time) time.Time {
	if t, ok := optionalTimeField(record, key); ok {
		return t
	}
	return fallback
}

func optionalTimeField(record map[string]interface{}, key string) (time.Time, bool) {
	raw, ok := record[key].(string)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
