package store

import (
	"testing"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/ports"
)

func task(id, title string) entities.Task {
	return entities.Task{ID: id, Title: title}
}

func TestNewTaskStoreInitialState(t *testing.T) {
	s := NewTaskStore()

	if got := s.Tasks(); len(got) != 0 {
		t.Errorf("expected empty task list, got %d entries", len(got))
	}
	if s.CurrentTask() != nil {
		t.Error("expected no selection")
	}
	if s.IsLoading() {
		t.Error("expected loading to be false")
	}
	if s.Error() != "" {
		t.Errorf("expected no error, got %q", s.Error())
	}

	f := s.Filters()
	if f.Status != ports.FilterAll || f.Priority != ports.FilterAll || f.Category != ports.FilterAll {
		t.Errorf("expected wildcard filters, got %+v", f)
	}
	if f.SearchQuery != "" {
		t.Errorf("expected empty search query, got %q", f.SearchQuery)
	}

	p := s.Pagination()
	if p.Page != 1 || p.Limit != DefaultPageSize || p.Total != 0 {
		t.Errorf("unexpected initial pagination %+v", p)
	}
}

func TestSetTasksClearsLoadingAndError(t *testing.T) {
	s := NewTaskStore()
	s.SetLoading(true)
	s.SetError("boom")

	s.SetTasks([]entities.Task{task("1", "one"), task("2", "two")})

	if got := len(s.Tasks()); got != 2 {
		t.Fatalf("expected 2 tasks, got %d", got)
	}
	if s.IsLoading() {
		t.Error("SetTasks should clear loading")
	}
	if s.Error() != "" {
		t.Errorf("SetTasks should clear error, got %q", s.Error())
	}
}

func TestAddTaskPrependsNewTasks(t *testing.T) {
	s := NewTaskStore()
	s.SetTasks([]entities.Task{task("1", "one")})

	s.AddTask(task("2", "two"))

	got := s.Tasks()
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
	if got[0].ID != "2" {
		t.Errorf("new task should be first, got %q", got[0].ID)
	}
}

func TestAddTaskReplacesExistingID(t *testing.T) {
	s := NewTaskStore()
	s.SetTasks([]entities.Task{task("1", "one"), task("2", "two")})

	s.AddTask(task("2", "two updated"))

	got := s.Tasks()
	if len(got) != 2 {
		t.Fatalf("duplicate ID must not grow the list, got %d tasks", len(got))
	}
	if got[1].Title != "two updated" {
		t.Errorf("existing entry should be replaced in place, got %q", got[1].Title)
	}
}

func TestUpdateTaskPreservesPosition(t *testing.T) {
	s := NewTaskStore()
	s.SetTasks([]entities.Task{task("1", "one"), task("2", "two"), task("3", "three")})

	s.UpdateTask(task("2", "renamed"))

	got := s.Tasks()
	if got[1].ID != "2" || got[1].Title != "renamed" {
		t.Errorf("expected task 2 renamed in place, got %+v", got[1])
	}
}

func TestUpdateTaskRefreshesSelection(t *testing.T) {
	s := NewTaskStore()
	s.SetTasks([]entities.Task{task("1", "one")})
	sel := task("1", "one")
	s.SetCurrentTask(&sel)

	s.UpdateTask(task("1", "renamed"))

	current := s.CurrentTask()
	if current == nil || current.Title != "renamed" {
		t.Errorf("selection should refresh with the update, got %+v", current)
	}
}

func TestUpdateTaskUnknownIDIsIgnored(t *testing.T) {
	s := NewTaskStore()
	s.SetTasks([]entities.Task{task("1", "one")})

	s.UpdateTask(task("99", "ghost"))

	if got := len(s.Tasks()); got != 1 {
		t.Errorf("unknown ID should not change the list, got %d tasks", got)
	}
}

func TestRemoveTaskClearsMatchingSelection(t *testing.T) {
	s := NewTaskStore()
	s.SetTasks([]entities.Task{task("1", "one"), task("2", "two")})
	sel := task("1", "one")
	s.SetCurrentTask(&sel)

	s.RemoveTask("1")

	if got := len(s.Tasks()); got != 1 {
		t.Fatalf("expected 1 task after removal, got %d", got)
	}
	if s.CurrentTask() != nil {
		t.Error("removing the selected task should clear the selection")
	}
}

func TestRemoveTaskKeepsOtherSelection(t *testing.T) {
	s := NewTaskStore()
	s.SetTasks([]entities.Task{task("1", "one"), task("2", "two")})
	sel := task("2", "two")
	s.SetCurrentTask(&sel)

	s.RemoveTask("1")

	if current := s.CurrentTask(); current == nil || current.ID != "2" {
		t.Errorf("unrelated selection should survive, got %+v", current)
	}
}

func TestSetErrorClearsLoading(t *testing.T) {
	s := NewTaskStore()
	s.SetTasks([]entities.Task{task("1", "one")})
	s.SetLoading(true)

	s.SetError("network down")

	if s.IsLoading() {
		t.Error("SetError should clear loading")
	}
	if s.Error() != "network down" {
		t.Errorf("unexpected error message %q", s.Error())
	}
	if got := len(s.Tasks()); got != 1 {
		t.Errorf("error must not touch the task list, got %d tasks", got)
	}
}

func TestSetFiltersMergesOnlyProvidedFields(t *testing.T) {
	s := NewTaskStore()
	status := "In Progress"
	s.SetFilters(FilterPatch{Status: &status})

	f := s.Filters()
	if f.Status != "In Progress" {
		t.Errorf("status not applied, got %q", f.Status)
	}
	if f.Priority != ports.FilterAll || f.Category != ports.FilterAll {
		t.Errorf("untouched fields must survive the merge, got %+v", f)
	}

	search := "report"
	s.SetFilters(FilterPatch{SearchQuery: &search})

	f = s.Filters()
	if f.Status != "In Progress" {
		t.Errorf("second merge must not reset status, got %q", f.Status)
	}
	if f.SearchQuery != "report" {
		t.Errorf("search query not applied, got %q", f.SearchQuery)
	}
}

func TestSetPaginationMergesOnlyProvidedFields(t *testing.T) {
	s := NewTaskStore()
	total := 37
	s.SetPagination(PaginationPatch{Total: &total})

	p := s.Pagination()
	if p.Total != 37 {
		t.Errorf("total not applied, got %d", p.Total)
	}
	if p.Page != 1 || p.Limit != DefaultPageSize {
		t.Errorf("untouched fields must survive the merge, got %+v", p)
	}
}

func TestReset(t *testing.T) {
	s := NewTaskStore()
	s.SetTasks([]entities.Task{task("1", "one")})
	sel := task("1", "one")
	s.SetCurrentTask(&sel)
	status := "Completed"
	s.SetFilters(FilterPatch{Status: &status})
	page := 3
	s.SetPagination(PaginationPatch{Page: &page})
	s.SetError("stale")

	s.Reset()

	if len(s.Tasks()) != 0 || s.CurrentTask() != nil || s.Error() != "" {
		t.Error("reset should return to the initial empty state")
	}
	if f := s.Filters(); f.Status != ports.FilterAll {
		t.Errorf("reset should restore wildcard filters, got %+v", f)
	}
	if p := s.Pagination(); p.Page != 1 || p.Limit != DefaultPageSize {
		t.Errorf("reset should restore initial pagination, got %+v", p)
	}
}

func TestFetchSequencingDiscardsStaleCompletion(t *testing.T) {
	s := NewTaskStore()

	first := s.BeginFetch()
	second := s.BeginFetch()

	if applied := s.CompleteFetch(first, []entities.Task{task("old", "stale")}, 1); applied {
		t.Error("completion of a superseded fetch must be discarded")
	}
	if got := len(s.Tasks()); got != 0 {
		t.Errorf("stale completion must not write the list, got %d tasks", got)
	}
	if !s.IsLoading() {
		t.Error("store should still be loading while the latest fetch is in flight")
	}

	if applied := s.CompleteFetch(second, []entities.Task{task("new", "fresh")}, 1); !applied {
		t.Error("completion of the latest fetch must be applied")
	}
	got := s.Tasks()
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("latest completion should win, got %+v", got)
	}
	if s.IsLoading() {
		t.Error("completion should clear loading")
	}
}

func TestFetchSequencingDiscardsStaleFailure(t *testing.T) {
	s := NewTaskStore()

	first := s.BeginFetch()
	second := s.BeginFetch()

	if applied := s.FailFetch(first, "old failure"); applied {
		t.Error("failure of a superseded fetch must be discarded")
	}
	if s.Error() != "" {
		t.Errorf("stale failure must not set the error, got %q", s.Error())
	}

	if applied := s.FailFetch(second, "real failure"); !applied {
		t.Error("failure of the latest fetch must be applied")
	}
	if s.Error() != "real failure" {
		t.Errorf("unexpected error %q", s.Error())
	}
}

func TestCompleteFetchSetsTotal(t *testing.T) {
	s := NewTaskStore()

	seq := s.BeginFetch()
	s.CompleteFetch(seq, []entities.Task{task("1", "one")}, 25)

	if p := s.Pagination(); p.Total != 25 {
		t.Errorf("completion should record the server total, got %d", p.Total)
	}
}

func TestBeginFetchClearsError(t *testing.T) {
	s := NewTaskStore()
	s.SetError("previous failure")

	s.BeginFetch()

	if s.Error() != "" {
		t.Errorf("starting a fetch should clear the error, got %q", s.Error())
	}
	if !s.IsLoading() {
		t.Error("starting a fetch should set loading")
	}
}

func TestWatchNotifiesOnMutation(t *testing.T) {
	s := NewTaskStore()

	calls := 0
	s.Watch(func() { calls++ })

	s.SetTasks([]entities.Task{task("1", "one")})
	s.SetLoading(true)

	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}
}
