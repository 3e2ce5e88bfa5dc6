package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
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

type CreateProjectRequest struct {
	Name             string  `json:"name" binding:"required"`
	Description      string  `json:"description"`
	Location         string  `json:"location" binding:"required"`
	Address          string  `json:"address"`
	Budget           any     `json:"budget"`
	StartDate        *string `json:"start_date"`
	EstimatedEndDate *string `json:"estimated_end_date"`
	Status           string  `json:"status"`
}

type UpdateProjectRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	Location         *string `json:"location"`
	Address          *string `json:"address"`
	Budget           any     `json:"budget"`
	StartDate        *string `json:"start_date"`
	EstimatedEndDate *string `json:"estimated_end_date"`
	ActualEndDate    *string `json:"actual_end_date"`
	Status           *string `json:"status"`
}

type MemberResponse struct {
	ID         uint            `json:"id"`
	Role       string          `json:"role"`
	AssignedAt time.Time       `json:"assigned_at"`
	User       ProfileResponse `json:"user"`
}

type ProjectResponse struct {
	ID               uint             `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	Location         string           `json:"location"`
	Address          string           `json:"address"`
	Budget           *float64         `json:"budget"`
	StartDate        *time.Time       `json:"start_date"`
	EstimatedEndDate *time.Time       `json:"estimated_end_date"`
	ActualEndDate    *time.Time       `json:"actual_end_date"`
	Status           string           `json:"status"`
	CreatedBy        uint             `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
	Creator          *ProfileResponse `json:"created_by_profile,omitempty"`
	Members          []MemberResponse `json:"members"`
}

// parseBudget accepts a JSON number or a numeric string; anything empty maps
// to null.
func parseBudget(raw any) (*float64, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return &v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	default:
		return nil, errors.New("invalid budget")
	}
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t, nil
		}
	}

	return nil, errors.New("invalid date")
}

// memberRoleFor returns the caller's membership role for a project, or empty
// when there is no membership row. Absence is not an error: the policy layer
// treats it as no permission.
func memberRoleFor(projectID, userID uint) string {
	var member models.ProjectMember

	if err := db.DB.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error; err != nil {
		return ""
	}

	return member.Role
}

func loadProjectResponse(projectID uint) (ProjectResponse, error) {
	var project models.Project

	if err := db.DB.First(&project, projectID).Error; err != nil {
		return ProjectResponse{}, err
	}

	response := ProjectResponse{
		ID:               project.ID,
		Name:             project.Name,
		Description:      project.Description,
		Location:         project.Location,
		Address:          project.Address,
		Budget:           project.Budget,
		StartDate:        project.StartDate,
		EstimatedEndDate: project.EstimatedEndDate,
		ActualEndDate:    project.ActualEndDate,
		Status:           project.Status,
		CreatedBy:        project.CreatedBy,
		CreatedAt:        project.CreatedAt,
		Members:          []MemberResponse{},
	}

	var creatorProfile models.Profile

	if err := db.DB.Where("user_id = ?", project.CreatedBy).First(&creatorProfile).Error; err == nil {
		creator := toProfileResponse(creatorProfile)
		response.Creator = &creator
	}

	var members []models.ProjectMember

	if err := db.DB.Where("project_id = ?", projectID).Find(&members).Error; err != nil {
		return ProjectResponse{}, err
	}

	for _, member := range members {
		var memberProfile models.Profile

		if err := db.DB.Where("user_id = ?", member.UserID).First(&memberProfile).Error; err != nil {
			log.Printf("Profile missing for member %d: %v", member.UserID, err)
			continue
		}

		response.Members = append(response.Members, MemberResponse{
			ID:         member.ID,
			Role:       member.Role,
			AssignedAt: member.AssignedAt,
			User:       toProfileResponse(memberProfile),
		})
	}

	return response, nil
}

func CreateProject(ctx *gin.Context) {
	profile, err := utils.GetCurrentProfile(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.CanCreateProject(profile.Role) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only admins and project managers can create projects"})
		return
	}

	var req CreateProjectRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Project name and location are required"})
		return
	}

	budget, err := parseBudget(req.Budget)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid budget"})
		return
	}

	startDate, err := parseDate(req.StartDate)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date"})
		return
	}

	estimatedEndDate, err := parseDate(req.EstimatedEndDate)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid estimated_end_date"})
		return
	}

	status := req.Status

	if status == "" {
		status = types.ProjectPlanning
	}

	if !types.ValidProjectStatus(status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	project := models.Project{
		Name:             req.Name,
		Description:      req.Description,
		Location:         req.Location,
		Address:          req.Address,
		Budget:           budget,
		StartDate:        startDate,
		EstimatedEndDate: estimatedEndDate,
		Status:           status,
		CreatedBy:        profile.UserID,
	}

	// The creator becomes the single owner member in the same transaction;
	// a project without its owner row must never be observable.
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		return tx.Create(&models.ProjectMember{
			ProjectID:  project.ID,
			UserID:     profile.UserID,
			Role:       types.MemberOwner,
			AssignedBy: profile.UserID,
			AssignedAt: time.Now(),
		}).Error
	})

	if err != nil {
		log.Printf("Failed to create project: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	response, err := loadProjectResponse(project.ID)

	if err != nil {
		log.Printf("Failed to load created project %d: %v", project.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"project": response})
}

func ListProjects(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit := 50
	offset := 0

	if raw := ctx.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if raw := ctx.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	query := db.DB.Model(&models.Project{}).
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ? AND project_members.deleted_at IS NULL", userID)

	if status := ctx.Query("status"); status != "" {
		query = query.Where("projects.status = ?", status)
	}

	if search := ctx.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("projects.name LIKE ? OR projects.location LIKE ?", pattern, pattern)
	}

	var total int64

	if err := query.Count(&total).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}

	var projects []models.Project

	if err := query.Order("projects.created_at DESC").Limit(limit).Offset(offset).Find(&projects).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}

	response := []ProjectResponse{}

	for _, project := range projects {
		hydrated, err := loadProjectResponse(project.ID)

		if err != nil {
			log.Printf("Failed to hydrate project %d: %v", project.ID, err)
			continue
		}

		response = append(response, hydrated)
	}

	ctx.JSON(http.StatusOK, gin.H{"projects": response, "total": total})
}

func GetProject(ctx *gin.Context) {
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

	response, err := loadProjectResponse(projectID)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"project": response})
}

func UpdateProject(ctx *gin.Context) {
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

	var project models.Project

	if err := db.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return
	}

	memberRole := memberRoleFor(projectID, profile.UserID)

	if !authz.CanUpdateProject(profile.Role, project.CreatedBy, profile.UserID, memberRole) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions to update this project"})
		return
	}

	var req UpdateProjectRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
	}

	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if req.Location != nil {
		updates["location"] = *req.Location
	}

	if req.Address != nil {
		updates["address"] = *req.Address
	}

	if req.Budget != nil {
		budget, err := parseBudget(req.Budget)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid budget"})
			return
		}
		updates["budget"] = budget
	}

	for field, raw := range map[string]*string{
		"start_date":         req.StartDate,
		"estimated_end_date": req.EstimatedEndDate,
		"actual_end_date":    req.ActualEndDate,
	} {
		if raw == nil {
			continue
		}
		parsed, err := parseDate(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + field})
			return
		}
		updates[field] = parsed
	}

	if req.Status != nil {
		if !types.ValidProjectStatus(*req.Status) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		updates["status"] = *req.Status
	}

	if len(updates) > 0 {
		if err := db.DB.Model(&project).Updates(updates).Error; err != nil {
			log.Printf("Failed to update project %d: %v", projectID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
			return
		}
	}

	response, err := loadProjectResponse(projectID)

	if err != nil {
		log.Printf("Failed to load updated project %d: %v", projectID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}

	// Other members hear about the change after the response is on its way.
	var memberIDs []uint

	for _, member := range response.Members {
		if member.User.ID != profile.UserID {
			memberIDs = append(memberIDs, member.User.ID)
		}
	}

	if len(memberIDs) > 0 {
		if err := db.DB.First(&project, projectID).Error; err != nil {
			log.Printf("Failed to reload project %d for notification: %v", projectID, err)
		} else {
			notify.ProjectUpdated(memberIDs, project, "Project details were updated")
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"project": response})
}

func DeleteProject(ctx *gin.Context) {
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

	var project models.Project

	if err := db.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return
	}

	if !authz.CanDeleteProject(profile.Role, project.CreatedBy, profile.UserID) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Only project creators and admins can delete projects"})
		return
	}

	// The project owns its members and tasks; deleting it deletes them.
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&project).Error
	})

	if err != nil {
		log.Printf("Failed to delete project %d: %v", projectID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
