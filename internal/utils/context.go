package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sitecrew-dev/sitecrew/internal/middleware"
	"github.com/sitecrew-dev/sitecrew/internal/models"
	"github.com/sitecrew-dev/sitecrew/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return middleware.AuthenticatedUser{}, fmt.Errorf("User not authenticated")
	}

	authenticatedUser, ok := user.(middleware.AuthenticatedUser)

	if !ok {
		return middleware.AuthenticatedUser{}, fmt.Errorf("Invalid user type in context")
	}

	return authenticatedUser, nil
}

func GetCurrentUserID(ctx *gin.Context) (uint, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return 0, err
	}

	return user.ID, nil
}

func GetCurrentProfile(ctx *gin.Context) (models.Profile, error) {
	value, exists := ctx.Get(types.ContextProfileKey)

	if !exists {
		return models.Profile{}, fmt.Errorf("Profile not resolved")
	}

	profile, ok := value.(models.Profile)

	if !ok {
		return models.Profile{}, fmt.Errorf("Invalid profile type in context")
	}

	return profile, nil
}

func GetProjectID(ctx *gin.Context) (uint, error) {
	projectID, err := strconv.ParseUint(ctx.Param("project_id"), 10, 64)

	if err != nil {
		return 0, fmt.Errorf("Invalid Project ID")
	}

	return uint(projectID), nil
}

func GetParamID(ctx *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)

	if err != nil {
		return 0, fmt.Errorf("Invalid %s", name)
	}

	return uint(id), nil
}
