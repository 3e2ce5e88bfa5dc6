package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sitecrew-dev/sitecrew/db"
	"github.com/sitecrew-dev/sitecrew/internal/authz"
	"github.com/sitecrew-dev/sitecrew/internal/models"
	"github.com/sitecrew-dev/sitecrew/internal/notify"
	"github.com/sitecrew-dev/sitecrew/internal/types"
	"github.com/sitecrew-dev/sitecrew/internal/utils"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	Title          string  `json:"title" binding:"required"`
	Description    string  `json:"description"`
	Priority       string  `json:"priority"`
	Status         string  `json:"status"`
	AssignedTo     *uint   `json:"assigned_to"`
	DueDate        *string `json:"due_date"`
	EstimatedHours any     `json:"estimated_hours"`
	DependsOn      *uint   `json:"depends_on"`
	Location       string  `json:"location"`
}

type TaskResponse struct {
	ID             uint             `json:"id"`
	ProjectID      uint             `json:"project_id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Status         string           `json:"status"`
	Priority       string           `json:"priority"`
	AssignedTo     *uint            `json:"assigned_to"`
	Assignee       *ProfileResponse `json:"assigned_to_profile,omitempty"`
	DueDate        *time.Time       `json:"due_date"`
	EstimatedHours *float64         `json:"estimated_hours"`
	ActualHours    *float64         `json:"actual_hours"`
	DependsOn      *uint            `json:"depends_on"`
	Location       string           `json:"location"`
	CreatedBy      uint             `json:"created_by"`
	CompletedAt    *time.Time       `json:"completed_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Fields a task update may touch. Anything else in the request body is
// dropped, not rejected.
var taskUpdateAllowList = map[string]bool{
	"title":           true,
	"description":     true,
	"status":          true,
	"priority":        true,
	"assigned_to":     true,
	"due_date":        true,
	"estimated_hours": true,
	"actual_hours":    true,
	"depends_on":      true,
	"location":        true,
}

func toTaskResponse(task models.Task) TaskResponse {
	response := TaskResponse{
		ID:             task.ID,
		ProjectID:      task.ProjectID,
		Title:          task.Title,
		Description:    task.Description,
		Status:         task.Status,
		Priority:       task.Priority,
		AssignedTo:     task.AssignedTo,
		DueDate:        task.DueDate,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		DependsOn:      task.DependsOn,
		Location:       task.Location,
		CreatedBy:      task.CreatedBy,
		CompletedAt:    task.CompletedAt,
		CreatedAt:      task.CreatedAt,
	}

	if task.AssignedTo != nil {
		var assigneeProfile models.Profile

		if err := db.DB.Where("user_id = ?", *task.AssignedTo).First(&assigneeProfile).Error; err == nil {
			assignee := toProfileResponse(assigneeProfile)
			response.Assignee = &assignee
		}
	}

	return response
}

func isProjectMember(projectID, userID uint) bool {
	return memberRoleFor(projectID, userID) != ""
}

func CreateTask(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := utils.GetCurrentProfile(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	memberRole := memberRoleFor(projectID, profile.UserID)

	if !authz.CanCreateTask(profile.Role, memberRole) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only owners, managers, and contractors can create tasks"})
		return
	}

	var req CreateTaskRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	priority := req.Priority

	if priority == "" {
		priority = types.PriorityMedium
	}

	if !types.ValidPriority(priority) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be low, medium, high, or urgent"})
		return
	}

	status := req.Status

	if status == "" {
		status = types.TaskTodo
	}

	var project models.Project

	if err := db.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return
	}

	if req.AssignedTo != nil && !isProjectMember(projectID, *req.AssignedTo) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Assigned user is not a member of this project"})
		return
	}

	if req.DependsOn != nil {
		var blocker models.Task

		if err := db.DB.Where("id = ? AND project_id = ?", *req.DependsOn, projectID).First(&blocker).Error; err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Dependency task not found in this project"})
			return
		}
	}

	dueDate, err := parseDate(req.DueDate)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid due_date"})
		return
	}

	estimatedHours, err := parseBudget(req.EstimatedHours)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid estimated_hours"})
		return
	}

	task := models.Task{
		ProjectID:      projectID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         status,
		Priority:       priority,
		AssignedTo:     req.AssignedTo,
		DueDate:        dueDate,
		EstimatedHours: estimatedHours,
		DependsOn:      req.DependsOn,
		Location:       req.Location,
		CreatedBy:      profile.UserID,
	}

	if err := db.DB.Create(&task).Error; err != nil {
		log.Printf("Failed to create task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	if task.AssignedTo != nil {
		notify.TaskAssigned(*task.AssignedTo, task, project)
	}

	ctx.JSON(http.StatusCreated, gin.H{"task": toTaskResponse(task)})
}

func UpdateTask(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID, err := utils.GetParamID(ctx, "task_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := utils.GetCurrentProfile(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var task models.Task

	if err := db.DB.Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return
	}

	memberRole := memberRoleFor(projectID, profile.UserID)

	if profile.Role != types.RoleAdmin && memberRole == "" {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this project"})
		return
	}

	if !authz.CanUpdateTask(profile.Role, task.AssignedTo, profile.UserID, memberRole) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to update this task"})
		return
	}

	var body map[string]any

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updates, errMsg := sanitizeTaskUpdates(body, projectID)

	if errMsg != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}

	oldStatus := task.Status

	// completed_at is stamped exactly once, on the first transition into
	// completed. Later updates never restamp it.
	if newStatus, ok := updates["status"].(string); ok {
		if newStatus == types.TaskCompleted && oldStatus != types.TaskCompleted {
			now := time.Now()
			updates["completed_at"] = &now
		}
	}

	if len(updates) > 0 {
		if err := db.DB.Model(&task).Updates(updates).Error; err != nil {
			log.Printf("Failed to update task %d: %v", taskID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
			return
		}
	}

	if err := db.DB.First(&task, taskID).Error; err != nil {
		log.Printf("Failed to refresh task %d: %v", taskID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	// On a status change, the project's owners and managers (minus the
	// actor) are told about it.
	if newStatus, ok := updates["status"].(string); ok && newStatus != oldStatus {
		var project models.Project

		if err := db.DB.First(&project, projectID).Error; err == nil {
			var managers []models.ProjectMember

			db.DB.Where("project_id = ? AND role IN ?", projectID,
				[]string{types.MemberOwner, types.MemberManager}).Find(&managers)

			var managerIDs []uint
			for _, manager := range managers {
				if manager.UserID != profile.UserID {
					managerIDs = append(managerIDs, manager.UserID)
				}
			}

			if len(managerIDs) > 0 {
				notify.TaskUpdated(managerIDs, task, project, "Task status changed to "+newStatus)
			}
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"task": toTaskResponse(task)})
}

// sanitizeTaskUpdates keeps only allow-listed fields and coerces them to
// their column types. Unknown keys are dropped silently. Returns a non-empty
// message on a value that cannot be coerced.
func sanitizeTaskUpdates(body map[string]any, projectID uint) (map[string]interface{}, string) {
	updates := make(map[string]interface{})

	for key, value := range body {
		if !taskUpdateAllowList[key] {
			continue
		}

		switch key {
		case "title", "description", "status", "location":
			text, ok := value.(string)
			if !ok {
				return nil, "Invalid " + key
			}
			if key == "title" && text == "" {
				return nil, "Title cannot be empty"
			}
			updates[key] = text

		case "priority":
			text, ok := value.(string)
			if !ok || !types.ValidPriority(text) {
				return nil, "Invalid priority. Must be low, medium, high, or urgent"
			}
			updates[key] = text

		case "assigned_to":
			if value == nil {
				updates[key] = nil
				continue
			}
			number, ok := value.(float64)
			if !ok {
				return nil, "Invalid assigned_to"
			}
			assignee := uint(number)
			if !isProjectMember(projectID, assignee) {
				return nil, "Assigned user is not a member of this project"
			}
			updates[key] = assignee

		case "depends_on":
			if value == nil {
				updates[key] = nil
				continue
			}
			number, ok := value.(float64)
			if !ok {
				return nil, "Invalid depends_on"
			}
			blockerID := uint(number)
			var blocker models.Task
			if err := db.DB.Where("id = ? AND project_id = ?", blockerID, projectID).First(&blocker).Error; err != nil {
				return nil, "Dependency task not found in this project"
			}
			updates[key] = blockerID

		case "due_date":
			if value == nil {
				updates[key] = nil
				continue
			}
			text, ok := value.(string)
			if !ok {
				return nil, "Invalid due_date"
			}
			parsed, err := parseDate(&text)
			if err != nil {
				return nil, "Invalid due_date"
			}
			updates[key] = parsed

		case "estimated_hours", "actual_hours":
			if value == nil {
				updates[key] = nil
				continue
			}
			parsed, err := parseBudget(value)
			if err != nil {
				return nil, "Invalid " + key
			}
			updates[key] = parsed
		}
	}

	return updates, ""
}

func ListTasks(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := utils.GetCurrentProfile(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if profile.Role != types.RoleAdmin && memberRoleFor(projectID, profile.UserID) == "" {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}

	var tasks []models.Task

	if err := db.DB.Where("project_id = ?", projectID).Order("created_at DESC").Find(&tasks).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	response := []TaskResponse{}

	for _, task := range tasks {
		response = append(response, toTaskResponse(task))
	}

	ctx.JSON(http.StatusOK, gin.H{"tasks": response})
}

func DeleteTask(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID, err := utils.GetParamID(ctx, "task_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := utils.GetCurrentProfile(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var task models.Task

	if err := db.DB.Where("id = ? AND project_id = ?", taskID, projectID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return
	}

	memberRole := memberRoleFor(projectID, profile.UserID)

	if profile.Role != types.RoleAdmin && memberRole != types.MemberOwner && memberRole != types.MemberManager {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only owners and managers can delete tasks"})
		return
	}

	if err := db.DB.Delete(&task).Error; err != nil {
		log.Printf("Failed to delete task %d: %v", taskID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
