package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sitecrew-dev/sitecrew/db"
	"github.com/sitecrew-dev/sitecrew/internal/auth"
	"github.com/sitecrew-dev/sitecrew/internal/models"
	"github.com/sitecrew-dev/sitecrew/internal/notify"
	"github.com/sitecrew-dev/sitecrew/internal/router"
	"github.com/sitecrew-dev/sitecrew/internal/types"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "password1234"

// setupTest wires a fresh sqlite database into the package globals and
// returns a router. Each test gets its own database file under t.TempDir.
func setupTest(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	auth.SetJWTSecret("test-secret")
	notify.Init(&notify.Dispatcher{})

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sitecrew.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	db.DB = gdb

	if err := db.MigrateDatabase(); err != nil {
		t.Fatalf("migrate database: %v", err)
	}

	return router.NewRouter()
}

// createUser inserts a user plus profile directly and returns the user id
// and a valid bearer token.
func createUser(t *testing.T, email, fullName, role string) (uint, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := models.User{Email: email, PasswordHash: string(hash)}
	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	profile := models.Profile{
		UserID:   user.ID,
		Email:    email,
		FullName: fullName,
		Role:     role,
	}
	if err := db.DB.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	token, err := auth.GenerateJWT(user.ID, user.Email)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	return user.ID, token
}

func createProject(t *testing.T, name string, creatorID uint) models.Project {
	t.Helper()

	project := models.Project{
		Name:      name,
		Location:  "Springfield",
		Status:    types.ProjectPlanning,
		CreatedBy: creatorID,
	}
	if err := db.DB.Create(&project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}

	addMember(t, project.ID, creatorID, types.MemberOwner)
	return project
}

func addMember(t *testing.T, projectID, userID uint, role string) models.ProjectMember {
	t.Helper()

	member := models.ProjectMember{
		ProjectID:  projectID,
		UserID:     userID,
		Role:       role,
		AssignedBy: userID,
		AssignedAt: time.Now(),
	}
	if err := db.DB.Create(&member).Error; err != nil {
		t.Fatalf("create project member: %v", err)
	}
	return member
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()

	if w.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, want, w.Body.String())
	}
}
