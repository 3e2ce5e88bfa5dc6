package notify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sitecrew-dev/sitecrew/db"
	"github.com/sitecrew-dev/sitecrew/internal/models"
	"github.com/sitecrew-dev/sitecrew/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupReminderTest(t *testing.T) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "reminder.db")), &gorm.Config{
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

	Init(&Dispatcher{})
}

func seedAssignedTask(t *testing.T, due time.Time, status string) models.Task {
	t.Helper()

	user := models.User{Email: "assignee@example.com", PasswordHash: "x"}
	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	profile := models.Profile{UserID: user.ID, Email: user.Email, FullName: "Assignee", Role: types.RoleWorker}
	if err := db.DB.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}

	project := models.Project{Name: "Site", Location: "Here", Status: types.ProjectActive, CreatedBy: user.ID}
	if err := db.DB.Create(&project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}

	task := models.Task{
		ProjectID:  project.ID,
		Title:      "Inspection",
		Status:     status,
		Priority:   types.PriorityHigh,
		AssignedTo: &user.ID,
		DueDate:    &due,
		CreatedBy:  user.ID,
	}
	if err := db.DB.Create(&task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}

	return task
}

func reminderCount(taskID uint) int64 {
	var count int64
	db.DB.Model(&models.Notification{}).
		Where("task_id = ? AND type = ?", taskID, types.NotifyDeadlineReminder).
		Count(&count)
	return count
}

// waitForReminders polls until the reminder row count for a task reaches
// want, or fails after the deadline. Dispatch runs in a goroutine, so the
// row lands shortly after sweep returns.
func waitForReminders(t *testing.T, taskID uint, want int64) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reminderCount(taskID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("reminders = %d, want %d", reminderCount(taskID), want)
}

func TestSweepRemindsOncePerDay(t *testing.T) {
	setupReminderTest(t)

	task := seedAssignedTask(t, time.Now().Add(48*time.Hour), types.TaskTodo)

	r := NewReminder(time.Hour, 72*time.Hour)

	r.sweep()
	waitForReminders(t, task.ID, 1)

	// A second sweep inside the 24h window adds nothing.
	r.sweep()
	time.Sleep(100 * time.Millisecond)

	if got := reminderCount(task.ID); got != 1 {
		t.Errorf("reminders = %d after repeat sweep, want 1", got)
	}
}

func TestSweepSkipsCompletedAndDistantTasks(t *testing.T) {
	setupReminderTest(t)

	completed := seedAssignedTask(t, time.Now().Add(48*time.Hour), types.TaskCompleted)

	r := NewReminder(time.Hour, 72*time.Hour)
	r.sweep()
	time.Sleep(100 * time.Millisecond)

	if got := reminderCount(completed.ID); got != 0 {
		t.Errorf("reminders = %d for completed task, want 0", got)
	}
}

func TestSweepIgnoresTasksBeyondHorizon(t *testing.T) {
	setupReminderTest(t)

	distant := seedAssignedTask(t, time.Now().Add(30*24*time.Hour), types.TaskTodo)

	r := NewReminder(time.Hour, 72*time.Hour)
	r.sweep()
	time.Sleep(100 * time.Millisecond)

	if got := reminderCount(distant.ID); got != 0 {
		t.Errorf("reminders = %d for distant task, want 0", got)
	}
}
