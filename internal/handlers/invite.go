package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sitecrew-dev/sitecrew/db"
	"github.com/sitecrew-dev/sitecrew/internal/authz"
	"github.com/sitecrew-dev/sitecrew/internal/models"
	"github.com/sitecrew-dev/sitecrew/internal/notify"
	"github.com/sitecrew-dev/sitecrew/internal/types"
	"github.com/sitecrew-dev/sitecrew/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type InviteUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
}

// InviteUser creates an account on someone's behalf. The new user receives a
// one-time credential by email and changes it through the profile endpoint
// after first login.
func InviteUser(ctx *gin.Context) {
	profile, err := utils.GetCurrentProfile(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !authz.CanInviteUsers(profile.Role) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions to invite users"})
		return
	}

	var req InviteUserRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email, full name, and role are required"})
		return
	}

	if !types.ValidProfileRole(req.Role) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role. Must be admin, project_manager, contractor, or worker"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.Profile

	err = db.DB.Where("email = ?", req.Email).First(&existing).Error

	if err == nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking existing profile: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	oneTimePassword := uuid.NewString()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(oneTimePassword), bcrypt.DefaultCost)

	if err != nil {
		log.Printf("Failed to hash invite credential: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	newUser := models.User{
		Email:        req.Email,
		PasswordHash: string(passwordHash),
	}

	invitedProfile := models.Profile{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		Company:  req.Company,
		Phone:    req.Phone,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newUser).Error; err != nil {
			return err
		}

		invitedProfile.UserID = newUser.ID
		return tx.Create(&invitedProfile).Error
	})

	if err != nil {
		log.Printf("Failed to create invited user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Invite email carries the one-time credential; delivery failure must not
	// fail the invite itself.
	go func() {
		err := notify.Default().Email.Send(req.Email, "user_invite", map[string]any{
			"user_name":    req.FullName,
			"inviter_name": profile.FullName,
			"role":         req.Role,
			"password":     oneTimePassword,
			"login_link":   notify.Default().AppURL + "/login",
		})
		if err != nil {
			log.Printf("Failed to send invite email to %s: %v", req.Email, err)
		}
	}()

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User invited successfully",
		"user": gin.H{
			"id":        newUser.ID,
			"email":     req.Email,
			"full_name": req.FullName,
			"role":      req.Role,
		},
	})
}
