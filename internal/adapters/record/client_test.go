package record

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tasktrail/core/internal/domain/entities"
	"github.com/tasktrail/core/internal/infrastructure/config"
	"github.com/tasktrail/core/internal/infrastructure/logger"
	"github.com/tasktrail/core/internal/ports"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(config.BackendConfig{
		RecordURL: serverURL,
		AppID:     "tasktrail-test",
		Timeout:   5 * time.Second,
	}, logger.NewNop())
	c.SetToken("test-token")
	return c
}

func TestFetchRecordsShapesRequest(t *testing.T) {
	var gotPath, gotAppID, gotAuth string
	var gotQuery ports.RecordQuery

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAppID = r.Header.Get("X-App-Id")
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotQuery); err != nil {
			t.Errorf("failed to decode query: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":             []map[string]interface{}{{"Id": "1"}},
			"totalRecordCount": 14,
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	filter := ports.Eq("status", "To Do")
	page, err := c.FetchRecords(context.Background(), "task", ports.RecordQuery{
		Filter: &filter,
		Paging: &ports.PagingInfo{Limit: 10, Offset: 20},
	})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if gotPath != "/api/v1/tables/task/query" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAppID != "tasktrail-test" {
		t.Errorf("unexpected app id %q", gotAppID)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("unexpected authorization %q", gotAuth)
	}
	if gotQuery.Paging == nil || gotQuery.Paging.Offset != 20 {
		t.Errorf("paging did not survive the wire, got %+v", gotQuery.Paging)
	}
	if gotQuery.Filter == nil || gotQuery.Filter.Field != "status" {
		t.Errorf("filter did not survive the wire, got %+v", gotQuery.Filter)
	}

	if page.Total != 14 {
		t.Errorf("expected total 14, got %d", page.Total)
	}
	if len(page.Data) != 1 {
		t.Errorf("expected 1 record, got %d", len(page.Data))
	}
}

func TestFetchRecordsNilDataBecomesEmptySlice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": nil, "totalRecordCount": 0})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	page, err := c.FetchRecords(context.Background(), "task", ports.RecordQuery{})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if page.Data == nil {
		t.Error("nil data should be normalized to an empty slice")
	}
}

func TestFetchRecordNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "record not found"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FetchRecord(context.Background(), "task", "missing")
	if !errors.Is(err, entities.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRemoteFailureCarriesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "database unavailable"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.FetchRecords(context.Background(), "task", ports.RecordQuery{})

	var remoteErr *entities.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", remoteErr.Status)
	}
	if remoteErr.Message != "database unavailable" {
		t.Errorf("expected the service message verbatim, got %q", remoteErr.Message)
	}
}

func TestCreateRecordWrapsInEnvelope(t *testing.T) {
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"Id": "new-id", "title": "hello"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	raw, err := c.CreateRecord(context.Background(), "task", map[string]string{"title": "hello"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	record, ok := gotBody["record"].(map[string]interface{})
	if !ok || record["title"] != "hello" {
		t.Errorf("record should be wrapped in an envelope, got %v", gotBody)
	}

	var created struct {
		ID string `json:"Id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.ID != "new-id" {
		t.Errorf("unexpected created record %s", raw)
	}
}

func TestUpdateRecordUsesPatch(t *testing.T) {
	var gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"Id": "1"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.UpdateRecord(context.Background(), "task", "1", map[string]string{"title": "x"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("expected PATCH, got %s", gotMethod)
	}
}

func TestDeleteRecord(t *testing.T) {
	var gotMethod, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"message": "record deleted"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if err := c.DeleteRecord(context.Background(), "task_tag", "tag-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("expected DELETE, got %s", gotMethod)
	}
	if gotPath != "/api/v1/tables/task_tag/records/tag-1" {
		t.Errorf("unexpected path %q", gotPath)
	}
}

func TestNoTokenMeansNoAuthorizationHeader(t *testing.T) {
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}, "totalRecordCount": 0})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetToken("")
	if _, err := c.FetchRecords(context.Background(), "task", ports.RecordQuery{}); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("cleared token must drop the header, got %q", gotAuth)
	}
}
