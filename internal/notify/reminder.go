package notify

import (
	"context"
	"log"
	"time"

	"github.com/sitecrew-dev/sitecrew/db"
	"github.com/sitecrew-dev/sitecrew/internal/models"
	"github.com/sitecrew-dev/sitecrew/internal/types"
)

// Reminder periodically sweeps for tasks approaching their due date and
// dispatches deadline_reminder notifications to their assignees.
type Reminder struct {
	Interval time.Duration
	Horizon  time.Duration

	cancel context.CancelFunc
}

func NewReminder(interval, horizon time.Duration) *Reminder {
	return &Reminder{Interval: interval, Horizon: horizon}
}

// Start launches the sweep loop. An immediate sweep runs first, then one per
// interval until Stop.
func (r *Reminder) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go func() {
		r.sweep()

		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("Deadline reminder stopped")
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()

	log.Printf("Deadline reminder started (every %s, horizon %s)", r.Interval, r.Horizon)
}

func (r *Reminder) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Reminder) sweep() {
	now := time.Now()

	var tasks []models.Task
	err := db.DB.
		Where("due_date IS NOT NULL AND due_date > ? AND due_date <= ?", now, now.Add(r.Horizon)).
		Where("status <> ? AND assigned_to IS NOT NULL", types.TaskCompleted).
		Find(&tasks).Error

	if err != nil {
		log.Printf("Deadline sweep failed: %v", err)
		return
	}

	for _, task := range tasks {
		// One reminder per task and day, not one per sweep.
		var recent int64
		db.DB.Model(&models.Notification{}).
			Where("user_id = ? AND task_id = ? AND type = ? AND created_at > ?",
				*task.AssignedTo, task.ID, types.NotifyDeadlineReminder, now.Add(-24*time.Hour)).
			Count(&recent)

		if recent > 0 {
			continue
		}

		var project models.Project
		if err := db.DB.First(&project, task.ProjectID).Error; err != nil {
			log.Printf("Deadline sweep: project %d missing for task %d: %v", task.ProjectID, task.ID, err)
			continue
		}

		daysRemaining := int(time.Until(*task.DueDate).Hours() / 24)
		DeadlineReminder(*task.AssignedTo, task, project, daysRemaining)
	}
}
