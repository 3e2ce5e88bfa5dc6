package handlers

import (
	"errors"
	"log"
	"net/http"
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

type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

func AddMember(ctx *gin.Context) {
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

	callerRole := memberRoleFor(projectID, profile.UserID)

	if !authz.CanManageMembers(profile.Role, callerRole) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions to add members to this project"})
		return
	}

	var req AddMemberRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Project ID and email are required"})
		return
	}

	role := req.Role

	if role == "" {
		role = types.MemberWorker
	}

	// The single owner row is written at project creation and never again.
	if role == types.MemberOwner || !types.ValidMemberRole(role) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid member role"})
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

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var targetProfile models.Profile

	if err := db.DB.Where("email = ?", email).First(&targetProfile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found with that email"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	var existing models.ProjectMember

	err = db.DB.Where("project_id = ? AND user_id = ?", projectID, targetProfile.UserID).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "User is already a member of this project"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking membership: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	member := models.ProjectMember{
		ProjectID:  projectID,
		UserID:     targetProfile.UserID,
		Role:       role,
		AssignedBy: profile.UserID,
		AssignedAt: time.Now(),
	}

	if err := db.DB.Create(&member).Error; err != nil {
		// The unique index on (project_id, user_id) is the authoritative
		// guard; a concurrent add loses here, not in the pre-check above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "User is already a member of this project"})
			return
		}
		log.Printf("Failed to add project member: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
		return
	}

	notify.ProjectInvite(targetProfile.UserID, project, profile.FullName)

	ctx.JSON(http.StatusCreated, gin.H{
		"member": MemberResponse{
			ID:         member.ID,
			Role:       member.Role,
			AssignedAt: member.AssignedAt,
			User:       toProfileResponse(targetProfile),
		},
	})
}

func RemoveMember(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberID, err := utils.GetParamID(ctx, "member_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := utils.GetCurrentProfile(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	callerRole := memberRoleFor(projectID, profile.UserID)

	if !authz.CanManageMembers(profile.Role, callerRole) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions to remove members from this project"})
		return
	}

	var member models.ProjectMember

	if err := db.DB.Where("id = ? AND project_id = ?", memberID, projectID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	if !authz.CanRemoveMember(profile.Role, callerRole, member.Role) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Cannot remove project owner"})
		return
	}

	// Hard delete: a soft-deleted row would still hold the (project_id,
	// user_id) slot in the unique index and block re-adding this user.
	if err := db.DB.Unscoped().Delete(&member).Error; err != nil {
		log.Printf("Failed to remove project member %d: %v", memberID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}

func ListMembers(ctx *gin.Context) {
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
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve members"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"members": response.Members})
}
