// Package store holds the client-side state containers: the task list
// state and the authenticated user state. Stores are pure state, no I/O
// (the user store's session persistence is delegated to localstore).
package store

import (
	"sync"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/ports"
)

// DefaultPageSize is the initial pagination limit.
const DefaultPageSize = 10

// FilterPatch shallow-merges into the current filter state; only non-nil
// fields are applied.
type FilterPatch struct {
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Category    *string `json:"category,omitempty"`
	SearchQuery *string `json:"searchQuery,omitempty"`
}

// PaginationPatch shallow-merges into the current pagination state.
type PaginationPatch struct {
	Page  *int `json:"page,omitempty"`
	Limit *int `json:"limit,omitempty"`
	Total *int `json:"total,omitempty"`
}

// TaskStore is the in-memory observable state container for the task
// views: current page of tasks, selection, filters, pagination and
// loading/error status. Mutations are mutex-guarded; the store is written
// by the dispatching view code and read by any number of views.
//
// Task identity is unique within the store: adding a task whose ID is
// already present replaces the existing entry instead of duplicating it.
type TaskStore struct {
	mu         sync.RWMutex
	tasks      []entities.Task
	index      map[string]int
	current    *entities.Task
	loading    bool
	errMsg     string
	filters    ports.TaskFilter
	pagination ports.Pagination

	// fetchSeq is the latest issued fetch; completions carrying an older
	// sequence are discarded so a stale response can never overwrite a
	// newer one.
	fetchSeq uint64

	watchers []func()
}

// NewTaskStore creates a store in its initial empty state.
func NewTaskStore() *TaskStore {
	s := &TaskStore{}
	s.resetLocked()
	return s
}

func (s *TaskStore) resetLocked() {
	s.tasks = nil
	s.index = map[string]int{}
	s.current = nil
	s.loading = false
	s.errMsg = ""
	s.filters = ports.TaskFilter{
		Status:   ports.FilterAll,
		Priority: ports.FilterAll,
		Category: ports.FilterAll,
	}
	s.pagination = ports.Pagination{Page: 1, Limit: DefaultPageSize}
}

// Watch registers a listener invoked after every state mutation.
// Listeners must re-read store state through the accessors.
func (s *TaskStore) Watch(fn func()) {
	s.mu.Lock()
	s.watchers = append(s.watchers, fn)
	s.mu.Unlock()
}

func (s *TaskStore) notify() {
	s.mu.RLock()
	watchers := make([]func(), len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.RUnlock()

	for _, fn := range watchers {
		fn()
	}
}

func (s *TaskStore) rebuildIndexLocked() {
	s.index = make(map[string]int, len(s.tasks))
	for i, t := range s.tasks {
		s.index[t.ID] = i
	}
}

// SetTasks replaces the task list and clears loading and error state.
func (s *TaskStore) SetTasks(tasks []entities.Task) {
	s.mu.Lock()
	s.tasks = append([]entities.Task(nil), tasks...)
	s.rebuildIndexLocked()
	s.loading = false
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
}

// SetCurrentTask sets the detail-view selection. The selection is not
// validated against list membership: it may reference a task filtered out
// of the current view.
func (s *TaskStore) SetCurrentTask(task *entities.Task) {
	s.mu.Lock()
	if task == nil {
		s.current = nil
	} else {
		copied := *task
		s.current = &copied
	}
	s.mu.Unlock()
	s.notify()
}

// AddTask front-inserts a newly created task so it appears first
// regardless of the sort order of the last fetch. If the ID is already
// present the existing entry is replaced in place.
func (s *TaskStore) AddTask(task entities.Task) {
	s.mu.Lock()
	if i, ok := s.index[task.ID]; ok {
		s.tasks[i] = task
	} else {
		s.tasks = append([]entities.Task{task}, s.tasks...)
		s.rebuildIndexLocked()
	}
	s.mu.Unlock()
	s.notify()
}

// UpdateTask replaces the entry with a matching ID in place, preserving
// its position, and refreshes the selection when it points at the same
// task. Unknown IDs are ignored.
func (s *TaskStore) UpdateTask(task entities.Task) {
	s.mu.Lock()
	if i, ok := s.index[task.ID]; ok {
		s.tasks[i] = task
	}
	if s.current != nil && s.current.ID == task.ID {
		copied := task
		s.current = &copied
	}
	s.mu.Unlock()
	s.notify()
}

// RemoveTask filters the task out of the list and clears the selection if
// it was the removed task.
func (s *TaskStore) RemoveTask(id string) {
	s.mu.Lock()
	if i, ok := s.index[id]; ok {
		s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
		s.rebuildIndexLocked()
	}
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()
	s.notify()
}

// SetLoading sets the loading flag.
func (s *TaskStore) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// SetError records an error message and implicitly clears loading. Prior
// list state is left untouched.
func (s *TaskStore) SetError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.loading = false
	s.mu.Unlock()
	s.notify()
}

// SetFilters shallow-merges the patch into the filter state.
func (s *TaskStore) SetFilters(patch FilterPatch) {
	s.mu.Lock()
	if patch.Status != nil {
		s.filters.Status = *patch.Status
	}
	if patch.Priority != nil {
		s.filters.Priority = *patch.Priority
	}
	if patch.Category != nil {
		s.filters.Category = *patch.Category
	}
	if patch.SearchQuery != nil {
		s.filters.SearchQuery = *patch.SearchQuery
	}
	s.mu.Unlock()
	s.notify()
}

// SetPagination shallow-merges the patch into the pagination state.
func (s *TaskStore) SetPagination(patch PaginationPatch) {
	s.mu.Lock()
	if patch.Page != nil {
		s.pagination.Page = *patch.Page
	}
	if patch.Limit != nil {
		s.pagination.Limit = *patch.Limit
	}
	if patch.Total != nil {
		s.pagination.Total = *patch.Total
	}
	s.mu.Unlock()
	s.notify()
}

// Reset returns the store to its initial empty state. Used on logout.
func (s *TaskStore) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.fetchSeq = 0
	s.mu.Unlock()
	s.notify()
}

// BeginFetch marks the start of a list fetch: sets loading, clears any
// previous error and hands out the fetch sequence the completion must
// present. Issuing a new fetch supersedes all earlier in-flight ones.
func (s *TaskStore) BeginFetch() uint64 {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
	return seq
}

// CompleteFetch applies a fetch result. Results of superseded fetches are
// discarded; the return reports whether the result was applied.
func (s *TaskStore) CompleteFetch(seq uint64, tasks []entities.Task, total int) bool {
	s.mu.Lock()
	if seq != s.fetchSeq {
		s.mu.Unlock()
		return false
	}
	s.tasks = append([]entities.Task(nil), tasks...)
	s.rebuildIndexLocked()
	s.pagination.Total = total
	s.loading = false
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
	return true
}

// FailFetch records a fetch failure, subject to the same supersession
// rule as CompleteFetch. Prior list state is left untouched.
func (s *TaskStore) FailFetch(seq uint64, msg string) bool {
	s.mu.Lock()
	if seq != s.fetchSeq {
		s.mu.Unlock()
		return false
	}
	s.errMsg = msg
	s.loading = false
	s.mu.Unlock()
	s.notify()
	return true
}

// Tasks returns a copy of the current task list.
func (s *TaskStore) Tasks() []entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Task(nil), s.tasks...)
}

// Task looks up a listed task by ID.
func (s *TaskStore) Task(id string) (entities.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[id]; ok {
		return s.tasks[i], true
	}
	return entities.Task{}, false
}

// CurrentTask returns a copy of the selection, or nil when nothing is
// selected.
func (s *TaskStore) CurrentTask() *entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// IsLoading reports the loading flag.
func (s *TaskStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error returns the current error message, empty when none.
func (s *TaskStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Filters returns the current filter state.
func (s *TaskStore) Filters() ports.TaskFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Pagination returns the current pagination state.
func (s *TaskStore) Pagination() ports.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}
