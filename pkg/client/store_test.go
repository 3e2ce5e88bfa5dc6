package client_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sitecrew-dev/sitecrew/pkg/client"
)

// fakeAPI serves canned responses keyed by "METHOD path".
type fakeAPI struct {
	responses map[string]func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, ok := f.responses[r.Method+" "+r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		return
	}
	h(w, r)
}

func respond(status int, body any) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

func newStore(t *testing.T, api *fakeAPI) (*client.Store, func()) {
	t.Helper()
	server := httptest.NewServer(api)
	return client.NewStore(client.New(server.URL)), server.Close
}

func TestStoreCreateProjectPrepends(t *testing.T) {
	api := &fakeAPI{responses: map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/projects": respond(http.StatusOK, map[string]any{
			"projects": []map[string]any{{"id": 1, "name": "Old"}},
		}),
		"GET /api/notifications/unread_count": respond(http.StatusOK, map[string]any{"unread_count": 0}),
		"POST /api/projects": respond(http.StatusCreated, map[string]any{
			"project": map[string]any{"id": 2, "name": "New"},
		}),
	}}
	store, closeServer := newStore(t, api)
	defer closeServer()

	if err := store.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if _, err := store.CreateProject(map[string]any{"name": "New", "location": "Site"}); err != nil {
		t.Fatalf("create project: %v", err)
	}

	projects := store.Projects()
	if len(projects) != 2 || projects[0].Name != "New" || projects[1].Name != "Old" {
		t.Errorf("projects = %+v, want new one first", projects)
	}
}

func TestStoreFailedMutationLeavesStateUntouched(t *testing.T) {
	api := &fakeAPI{responses: map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/projects": respond(http.StatusOK, map[string]any{
			"projects": []map[string]any{{"id": 1, "name": "Keep"}},
		}),
		"GET /api/notifications/unread_count": respond(http.StatusOK, map[string]any{"unread_count": 0}),
		"POST /api/projects": respond(http.StatusForbidden, map[string]any{
			"error": "Only admins and project managers can create projects",
		}),
		"DELETE /api/projects/1": respond(http.StatusForbidden, map[string]any{
			"error": "Only project creators and admins can delete projects",
		}),
	}}
	store, closeServer := newStore(t, api)
	defer closeServer()

	if err := store.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if _, err := store.CreateProject(map[string]any{"name": "Denied"}); err == nil {
		t.Fatal("expected create to fail")
	}
	if err := store.DeleteProject(1); err == nil {
		t.Fatal("expected delete to fail")
	}

	projects := store.Projects()
	if len(projects) != 1 || projects[0].Name != "Keep" {
		t.Errorf("projects = %+v, want untouched", projects)
	}
}

func TestStoreUpdateProjectReplacesByID(t *testing.T) {
	api := &fakeAPI{responses: map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/projects": respond(http.StatusOK, map[string]any{
			"projects": []map[string]any{
				{"id": 1, "name": "First"},
				{"id": 2, "name": "Second"},
			},
		}),
		"GET /api/notifications/unread_count": respond(http.StatusOK, map[string]any{"unread_count": 0}),
		"PATCH /api/projects/2": respond(http.StatusOK, map[string]any{
			"project": map[string]any{"id": 2, "name": "Second Renamed", "status": "active"},
		}),
	}}
	store, closeServer := newStore(t, api)
	defer closeServer()

	if err := store.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if _, err := store.UpdateProject(2, map[string]any{"name": "Second Renamed"}); err != nil {
		t.Fatalf("update project: %v", err)
	}

	projects := store.Projects()
	if projects[0].Name != "First" || projects[1].Name != "Second Renamed" {
		t.Errorf("projects = %+v", projects)
	}
}

func TestStoreDeleteTaskFilters(t *testing.T) {
	api := &fakeAPI{responses: map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/projects/1/tasks": respond(http.StatusOK, map[string]any{
			"tasks": []map[string]any{
				{"id": 10, "title": "Stay"},
				{"id": 11, "title": "Go"},
			},
		}),
		"DELETE /api/projects/1/tasks/11": respond(http.StatusOK, map[string]any{"message": "Task deleted successfully"}),
	}}
	store, closeServer := newStore(t, api)
	defer closeServer()

	if _, err := store.LoadTasks(1); err != nil {
		t.Fatalf("load tasks: %v", err)
	}

	if err := store.DeleteTask(1, 11); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	tasks := store.Tasks(1)
	if len(tasks) != 1 || tasks[0].Title != "Stay" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestStoreMoveTaskReconcilesWithServer(t *testing.T) {
	api := &fakeAPI{responses: map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/projects/1/tasks": respond(http.StatusOK, map[string]any{
			"tasks": []map[string]any{{"id": 10, "title": "Pour", "status": "todo"}},
		}),
		"PATCH /api/projects/1/tasks/10": respond(http.StatusOK, map[string]any{
			"task": map[string]any{
				"id": 10, "title": "Pour", "status": "completed",
				"completed_at": "2026-09-01T10:00:00Z",
			},
		}),
	}}
	store, closeServer := newStore(t, api)
	defer closeServer()

	if _, err := store.LoadTasks(1); err != nil {
		t.Fatalf("load tasks: %v", err)
	}

	task, err := store.MoveTask(1, 10, "completed")
	if err != nil {
		t.Fatalf("move task: %v", err)
	}

	// The server's copy wins, including fields the client never set.
	if task.CompletedAt == nil {
		t.Error("completed_at missing after reconciliation")
	}

	tasks := store.Tasks(1)
	if tasks[0].Status != "completed" || tasks[0].CompletedAt == nil {
		t.Errorf("task = %+v", tasks[0])
	}
}

func TestStoreMoveTaskRollsBackOnError(t *testing.T) {
	api := &fakeAPI{responses: map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/projects/1/tasks": respond(http.StatusOK, map[string]any{
			"tasks": []map[string]any{{"id": 10, "title": "Pour", "status": "todo"}},
		}),
		"PATCH /api/projects/1/tasks/10": respond(http.StatusForbidden, map[string]any{
			"error": "You do not have permission to update this task",
		}),
	}}
	store, closeServer := newStore(t, api)
	defer closeServer()

	if _, err := store.LoadTasks(1); err != nil {
		t.Fatalf("load tasks: %v", err)
	}

	if _, err := store.MoveTask(1, 10, "completed"); err == nil {
		t.Fatal("expected move to fail")
	}

	tasks := store.Tasks(1)
	if tasks[0].Status != "todo" {
		t.Errorf("status = %q, want rollback to todo", tasks[0].Status)
	}
}

func TestStoreNotificationCounters(t *testing.T) {
	api := &fakeAPI{responses: map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/notifications": respond(http.StatusOK, map[string]any{
			"notifications": []map[string]any{
				{"id": 1, "read": false},
				{"id": 2, "read": false},
				{"id": 3, "read": true},
			},
		}),
		"POST /api/notifications/1/read": respond(http.StatusOK, map[string]any{
			"notification": map[string]any{"id": 1, "read": true},
		}),
		"DELETE /api/notifications/2": respond(http.StatusOK, map[string]any{"message": "Notification deleted"}),
	}}
	store, closeServer := newStore(t, api)
	defer closeServer()

	if _, err := store.LoadNotifications(); err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if store.UnreadCount() != 2 {
		t.Fatalf("unread = %d, want 2", store.UnreadCount())
	}

	if err := store.MarkNotificationRead(1); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if store.UnreadCount() != 1 {
		t.Errorf("unread = %d after mark read, want 1", store.UnreadCount())
	}

	if err := store.DeleteNotification(2); err != nil {
		t.Fatalf("delete notification: %v", err)
	}
	if store.UnreadCount() != 0 {
		t.Errorf("unread = %d after delete, want 0", store.UnreadCount())
	}
	if len(store.Notifications()) != 2 {
		t.Errorf("notifications = %d, want 2", len(store.Notifications()))
	}
}

func TestStoreCloseDropsState(t *testing.T) {
	api := &fakeAPI{responses: map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/projects": respond(http.StatusOK, map[string]any{
			"projects": []map[string]any{{"id": 1, "name": "Gone After Close"}},
		}),
		"GET /api/notifications/unread_count": respond(http.StatusOK, map[string]any{"unread_count": 3}),
	}}
	store, closeServer := newStore(t, api)
	defer closeServer()

	if err := store.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	store.Close()

	if len(store.Projects()) != 0 {
		t.Error("projects survived Close")
	}
	if store.UnreadCount() != 0 {
		t.Errorf("unread = %d after Close, want 0", store.UnreadCount())
	}
}

func TestStoreMarkAllRead(t *testing.T) {
	api := &fakeAPI{responses: map[string]func(http.ResponseWriter, *http.Request){
		"GET /api/notifications": respond(http.StatusOK, map[string]any{
			"notifications": []map[string]any{
				{"id": 1, "read": false},
				{"id": 2, "read": false},
			},
		}),
		"POST /api/notifications/read_all": respond(http.StatusOK, map[string]any{"message": "All notifications marked as read"}),
	}}
	store, closeServer := newStore(t, api)
	defer closeServer()

	if _, err := store.LoadNotifications(); err != nil {
		t.Fatalf("load notifications: %v", err)
	}

	if err := store.MarkAllNotificationsRead(); err != nil {
		t.Fatalf("mark all read: %v", err)
	}

	if store.UnreadCount() != 0 {
		t.Errorf("unread = %d, want 0", store.UnreadCount())
	}
	for _, n := range store.Notifications() {
		if !n.Read {
			t.Errorf("notification %d still unread", n.ID)
		}
	}
}
