package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sitecrew-dev/sitecrew/db"
	"github.com/sitecrew-dev/sitecrew/internal/auth"
	"github.com/sitecrew-dev/sitecrew/internal/models"
	"github.com/sitecrew-dev/sitecrew/internal/types"
	"github.com/sitecrew-dev/sitecrew/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FullName                string          `json:"full_name"`
	Company                 *string         `json:"company"`
	Phone                   *string         `json:"phone"`
	NotificationPreferences map[string]bool `json:"notification_preferences"`
	CurrentPassword         string          `json:"current_password"`
	NewPassword             string          `json:"new_password" binding:"omitempty,min=8"`
}

type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

type ProfileResponse struct {
	ID                      uint           `json:"id"`
	Email                   string         `json:"email"`
	FullName                string         `json:"full_name"`
	Role                    string         `json:"role"`
	Company                 string         `json:"company"`
	Phone                   string         `json:"phone"`
	NotificationPreferences datatypes.JSON `json:"notification_preferences"`
}

var (
	Domain = os.Getenv("DOMAIN")
)

func toProfileResponse(profile models.Profile) ProfileResponse {
	return ProfileResponse{
		ID:                      profile.UserID,
		Email:                   profile.Email,
		FullName:                profile.FullName,
		Role:                    profile.Role,
		Company:                 profile.Company,
		Phone:                   profile.Phone,
		NotificationPreferences: profile.NotificationPreferences,
	}
}

func setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Domain:   Domain,
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func Signup(ctx *gin.Context) {
	var req SignupRequest

	if err := ctx.BindJSON(&req); err != nil {
		log.Printf("Failed to bind JSON: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !types.ValidProfileRole(req.Role) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role. Must be admin, project_manager, contractor, or worker"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var existingUser models.User

	err := db.DB.Where("email = ?", req.Email).First(&existingUser).Error

	if err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
		return
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Database error when checking existing user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)

	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	newUser := models.User{
		Email:        req.Email,
		PasswordHash: string(passwordHash),
	}

	profile := models.Profile{
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

		profile.UserID = newUser.ID
		return tx.Create(&profile).Error
	})

	if err != nil {
		log.Printf("Failed to create user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateJWT(newUser.ID, newUser.Email)

	if err != nil {
		log.Printf("Failed to generate JWT: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setTokenCookie(ctx, token, 60*60*24*7)

	ctx.JSON(http.StatusCreated, gin.H{
		"user":    UserResponse{ID: newUser.ID, Email: newUser.Email},
		"profile": toProfileResponse(profile),
		"token":   token,
	})
}

func Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.BindJSON(&req); err != nil {
		log.Printf("Failed to bind JSON: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User

	err := db.DB.Where("email = ?", req.Email).First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		log.Printf("Database error when fetching user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	var profile models.Profile

	if err := db.DB.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		log.Printf("Profile missing for user %d: %v", user.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Email)

	if err != nil {
		log.Printf("Failed to generate JWT: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	setTokenCookie(ctx, token, 60*60*24*7)

	ctx.JSON(http.StatusOK, gin.H{
		"user":    UserResponse{ID: user.ID, Email: user.Email},
		"profile": toProfileResponse(profile),
		"token":   token,
	})
}

func Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	profile, err := utils.GetCurrentProfile(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":    UserResponse{ID: currentUser.ID, Email: currentUser.Email},
		"profile": toProfileResponse(profile),
	})
}

func Logout(ctx *gin.Context) {
	setTokenCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func UpdateProfile(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req UpdateProfileRequest

	if err := ctx.BindJSON(&req); err != nil {
		log.Printf("Failed to bind JSON: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var profile models.Profile

	if err := db.DB.Where("user_id = ?", currentUser.ID).First(&profile).Error; err != nil {
		log.Printf("Failed to fetch profile: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	updates := make(map[string]interface{})

	if req.FullName != "" {
		updates["full_name"] = strings.TrimSpace(req.FullName)
	}

	if req.Company != nil {
		updates["company"] = *req.Company
	}

	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}

	if req.NotificationPreferences != nil {
		prefs, err := json.Marshal(req.NotificationPreferences)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification preferences"})
			return
		}
		updates["notification_preferences"] = datatypes.JSON(prefs)
	}

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is required to change password"})
			return
		}

		var user models.User

		if err := db.DB.First(&user, currentUser.ID).Error; err != nil {
			log.Printf("Failed to fetch user: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
			return
		}

		passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Failed to hash new password: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if err := db.DB.Model(&user).Update("password_hash", string(passwordHash)).Error; err != nil {
			log.Printf("Failed to update password: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	if len(updates) > 0 {
		if err := db.DB.Model(&profile).Updates(updates).Error; err != nil {
			log.Printf("Failed to update profile: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	if err := db.DB.Where("user_id = ?", currentUser.ID).First(&profile).Error; err != nil {
		log.Printf("Failed to refresh profile: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"profile": toProfileResponse(profile)})
}
