package handlers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sitecrew-dev/sitecrew/db"
	"github.com/sitecrew-dev/sitecrew/internal/models"
	"github.com/sitecrew-dev/sitecrew/internal/types"
)

func TestCreateProject(t *testing.T) {
	r := setupTest(t)
	userID, token := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)

	w := doRequest(t, r, http.MethodPost, "/api/projects", token, map[string]any{
		"name":     "Riverside Tower",
		"location": "Dock Street 4",
		"budget":   "1500000.50",
	})
	wantStatus(t, w, http.StatusCreated)

	var resp struct {
		Project struct {
			ID      uint     `json:"id"`
			Status  string   `json:"status"`
			Budget  *float64 `json:"budget"`
			Members []struct {
				Role string `json:"role"`
				User struct {
					ID uint `json:"id"`
				} `json:"user"`
			} `json:"members"`
		} `json:"project"`
	}
	decodeBody(t, w, &resp)

	if resp.Project.Status != types.ProjectPlanning {
		t.Errorf("status = %q, want planning", resp.Project.Status)
	}
	if resp.Project.Budget == nil || *resp.Project.Budget != 1500000.50 {
		t.Errorf("budget = %v, want 1500000.50", resp.Project.Budget)
	}
	if len(resp.Project.Members) != 1 {
		t.Fatalf("members = %d, want exactly the owner", len(resp.Project.Members))
	}
	if resp.Project.Members[0].Role != types.MemberOwner || resp.Project.Members[0].User.ID != userID {
		t.Errorf("owner member = %+v", resp.Project.Members[0])
	}
}

func TestCreateProjectAsWorker(t *testing.T) {
	r := setupTest(t)
	_, token := createUser(t, "worker@example.com", "Wade", types.RoleWorker)

	w := doRequest(t, r, http.MethodPost, "/api/projects", token, map[string]any{
		"name":     "Side Job",
		"location": "Backyard",
	})
	wantStatus(t, w, http.StatusForbidden)
}

func TestCreateProjectMissingLocation(t *testing.T) {
	r := setupTest(t)
	_, token := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)

	w := doRequest(t, r, http.MethodPost, "/api/projects", token, map[string]any{
		"name": "No Location",
	})
	wantStatus(t, w, http.StatusBadRequest)
}

func TestListProjectsScopedToMembership(t *testing.T) {
	r := setupTest(t)
	pmID, pmToken := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)
	otherID, otherToken := createUser(t, "other@example.com", "Omar", types.RoleProjectManager)

	createProject(t, "Mine", pmID)
	createProject(t, "Theirs", otherID)

	var resp struct {
		Projects []struct {
			Name string `json:"name"`
		} `json:"projects"`
		Total int64 `json:"total"`
	}

	w := doRequest(t, r, http.MethodGet, "/api/projects", pmToken, nil)
	wantStatus(t, w, http.StatusOK)
	decodeBody(t, w, &resp)

	if resp.Total != 1 || len(resp.Projects) != 1 || resp.Projects[0].Name != "Mine" {
		t.Errorf("projects = %+v, total = %d", resp.Projects, resp.Total)
	}

	w = doRequest(t, r, http.MethodGet, "/api/projects", otherToken, nil)
	wantStatus(t, w, http.StatusOK)
	decodeBody(t, w, &resp)

	if resp.Total != 1 || resp.Projects[0].Name != "Theirs" {
		t.Errorf("projects = %+v, total = %d", resp.Projects, resp.Total)
	}
}

func TestListProjectsStatusFilter(t *testing.T) {
	r := setupTest(t)
	pmID, token := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)

	createProject(t, "Planning One", pmID)
	active := createProject(t, "Active One", pmID)
	db.DB.Model(&active).Update("status", types.ProjectActive)

	var resp struct {
		Projects []struct {
			Name string `json:"name"`
		} `json:"projects"`
	}

	w := doRequest(t, r, http.MethodGet, "/api/projects?status=active", token, nil)
	wantStatus(t, w, http.StatusOK)
	decodeBody(t, w, &resp)

	if len(resp.Projects) != 1 || resp.Projects[0].Name != "Active One" {
		t.Errorf("projects = %+v", resp.Projects)
	}
}

func TestGetProjectAsNonMember(t *testing.T) {
	r := setupTest(t)
	pmID, _ := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)
	_, strangerToken := createUser(t, "stranger@example.com", "Sam", types.RoleContractor)

	project := createProject(t, "Hidden", pmID)

	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), strangerToken, nil)
	wantStatus(t, w, http.StatusNotFound)
}

func TestGetProjectAsAdmin(t *testing.T) {
	r := setupTest(t)
	pmID, _ := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)
	_, adminToken := createUser(t, "admin@example.com", "Ada", types.RoleAdmin)

	project := createProject(t, "Visible To Admin", pmID)

	w := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), adminToken, nil)
	wantStatus(t, w, http.StatusOK)
}

func TestUpdateProjectByManagerMember(t *testing.T) {
	r := setupTest(t)
	pmID, _ := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)
	managerID, managerToken := createUser(t, "manager@example.com", "Mia", types.RoleContractor)

	project := createProject(t, "Renovation", pmID)
	addMember(t, project.ID, managerID, types.MemberManager)

	w := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/projects/%d", project.ID), managerToken, map[string]any{
		"status":      types.ProjectActive,
		"description": "Ground broken",
	})
	wantStatus(t, w, http.StatusOK)

	var updated models.Project
	if err := db.DB.First(&updated, project.ID).Error; err != nil {
		t.Fatalf("load project: %v", err)
	}
	if updated.Status != types.ProjectActive || updated.Description != "Ground broken" {
		t.Errorf("project = %+v", updated)
	}
}

func TestUpdateProjectNotifiesMembersWithFreshFields(t *testing.T) {
	r := setupTest(t)
	pmID, pmToken := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)
	workerID, _ := createUser(t, "worker@example.com", "Wade", types.RoleWorker)

	project := createProject(t, "Old Name", pmID)
	addMember(t, project.ID, workerID, types.MemberWorker)

	w := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/projects/%d", project.ID), pmToken, map[string]any{
		"name": "Riverside Tower",
	})
	wantStatus(t, w, http.StatusOK)

	// Fan-out runs in the background; the row must mention the renamed
	// project, not the stale one.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var n models.Notification
		err := db.DB.Where("user_id = ? AND type = ?", workerID, types.NotifyProjectUpdated).First(&n).Error
		if err == nil {
			if !strings.Contains(n.Message, "Riverside Tower") {
				t.Fatalf("notification message = %q, want the updated name", n.Message)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no project_updated notification for the other member")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUpdateProjectInvalidStatus(t *testing.T) {
	r := setupTest(t)
	pmID, token := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)
	project := createProject(t, "Renovation", pmID)

	w := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/projects/%d", project.ID), token, map[string]any{
		"status": "finished",
	})
	wantStatus(t, w, http.StatusBadRequest)
}

func TestUpdateProjectByWorkerMember(t *testing.T) {
	r := setupTest(t)
	pmID, _ := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)
	workerID, workerToken := createUser(t, "worker@example.com", "Wade", types.RoleWorker)

	project := createProject(t, "Renovation", pmID)
	addMember(t, project.ID, workerID, types.MemberWorker)

	w := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/projects/%d", project.ID), workerToken, map[string]any{
		"name": "Hijacked",
	})
	wantStatus(t, w, http.StatusForbidden)
}

func TestDeleteProject(t *testing.T) {
	r := setupTest(t)
	pmID, pmToken := createUser(t, "pm@example.com", "Paula", types.RoleProjectManager)
	managerID, managerToken := createUser(t, "manager@example.com", "Mia", types.RoleContractor)

	project := createProject(t, "Doomed", pmID)
	addMember(t, project.ID, managerID, types.MemberManager)

	task := models.Task{ProjectID: project.ID, Title: "Demolition", Status: types.TaskTodo, Priority: types.PriorityMedium, CreatedBy: pmID}
	if err := db.DB.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}

	// A manager member who is not the creator cannot delete.
	w := doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), managerToken, nil)
	wantStatus(t, w, http.StatusForbidden)

	w = doRequest(t, r, http.MethodDelete, fmt.Sprintf("/api/projects/%d", project.ID), pmToken, nil)
	wantStatus(t, w, http.StatusOK)

	var count int64
	db.DB.Model(&models.Task{}).Where("project_id = ?", project.ID).Count(&count)
	if count != 0 {
		t.Errorf("tasks left behind: %d", count)
	}
	db.DB.Model(&models.ProjectMember{}).Where("project_id = ?", project.ID).Count(&count)
	if count != 0 {
		t.Errorf("members left behind: %d", count)
	}

	w = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), pmToken, nil)
	wantStatus(t, w, http.StatusNotFound)
}
