// Package notify persists in-app notifications and fans them out to the
// email and push delivery sinks. Delivery is best-effort: the dispatcher is
// invoked in a goroutine after the triggering write has committed, every
// failure is logged and contained, and a failed sink never fails the batch
// for the remaining recipients.
package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/sitecrew-dev/sitecrew/db"
	"github.com/sitecrew-dev/sitecrew/internal/models"
	"github.com/sitecrew-dev/sitecrew/internal/types"
)

// Payload describes one notification event to deliver to a set of users.
type Payload struct {
	Type      string
	Title     string
	Message   string
	Link      string
	ProjectID *uint
	TaskID    *uint
	EmailData map[string]any
}

// Result counts what a dispatch actually did.
type Result struct {
	Notified  int
	PushSent  int
	EmailSent int
}

type Dispatcher struct {
	Email  *EmailSink
	Push   *PushSink
	AppURL string

	// Optional hook invoked with each persisted notification row, used to
	// feed the websocket stream.
	OnPersisted func(n models.Notification)
}

var defaultDispatcher = &Dispatcher{}

// Init replaces the package dispatcher; call once at startup.
func Init(d *Dispatcher) {
	defaultDispatcher = d
}

// Default returns the package dispatcher.
func Default() *Dispatcher {
	return defaultDispatcher
}

type preferences struct {
	Push  *bool `json:"push"`
	Email *bool `json:"email"`
}

func parsePreferences(raw []byte) preferences {
	var p preferences
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Printf("Failed to parse notification preferences: %v", err)
		}
	}
	return p
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

// Dispatch resolves the recipients, persists one notification row each, and
// fans out to the delivery sinks according to the recipients' preferences.
// Unknown user ids are skipped; they may have been removed concurrently.
func (d *Dispatcher) Dispatch(userIDs []uint, p Payload) (Result, error) {
	var result Result

	if len(userIDs) == 0 {
		return result, nil
	}

	var profiles []models.Profile
	if err := db.DB.Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return result, fmt.Errorf("failed to fetch recipient profiles: %w", err)
	}

	if len(profiles) == 0 {
		return result, nil
	}

	// In-app history is independent of the preference flags: every resolved
	// recipient gets a row.
	for _, profile := range profiles {
		notification := models.Notification{
			UserID:    profile.UserID,
			Type:      p.Type,
			Title:     p.Title,
			Message:   p.Message,
			Link:      p.Link,
			ProjectID: p.ProjectID,
			TaskID:    p.TaskID,
		}

		if err := db.DB.Create(&notification).Error; err != nil {
			log.Printf("Failed to persist notification for user %d: %v", profile.UserID, err)
			continue
		}

		result.Notified++

		if d.OnPersisted != nil {
			d.OnPersisted(notification)
		}
	}

	// Push fan-out for everyone who has not explicitly disabled push.
	var pushIDs []string
	for _, profile := range profiles {
		if enabled(parsePreferences(profile.NotificationPreferences).Push) {
			pushIDs = append(pushIDs, strconv.FormatUint(uint64(profile.UserID), 10))
		}
	}

	if len(pushIDs) > 0 {
		data := map[string]any{}
		if p.ProjectID != nil {
			data["project_id"] = *p.ProjectID
		}
		if p.TaskID != nil {
			data["task_id"] = *p.TaskID
		}

		if err := d.Push.Publish(pushIDs, p.Title, p.Message, p.Link, data); err != nil {
			log.Printf("Push delivery failed: %v", err)
		} else {
			result.PushSent = len(pushIDs)
		}
	}

	// Email fan-out, one request per recipient so a single failure cannot
	// abort the rest of the batch. No template configured for the type means
	// no email for anyone.
	templateID := d.Email.TemplateFor(p.Type)
	if templateID != "" {
		for _, profile := range profiles {
			if !enabled(parsePreferences(profile.NotificationPreferences).Email) {
				continue
			}

			data := map[string]any{"user_name": profile.FullName}
			for k, v := range p.EmailData {
				data[k] = v
			}

			if err := d.Email.Send(profile.Email, templateID, data); err != nil {
				log.Printf("Failed to send email to %s: %v", profile.Email, err)
				continue
			}

			result.EmailSent++
		}
	}

	return result, nil
}

// Go runs a dispatch in the background. Callers mutate first, respond to the
// client, and hand delivery off here; nothing that happens after this point
// can surface in the triggering request.
func Go(userIDs []uint, p Payload) {
	d := defaultDispatcher

	go func() {
		if _, err := d.Dispatch(userIDs, p); err != nil {
			log.Printf("Notification dispatch failed: %v", err)
		}
	}()
}

// ProjectInvite notifies a user that they were added to a project.
func ProjectInvite(userID uint, project models.Project, inviterName string) {
	projectID := project.ID
	link := fmt.Sprintf("/projects/%d", project.ID)

	Go([]uint{userID}, Payload{
		Type:      types.NotifyProjectInvite,
		Title:     "Project Invitation",
		Message:   fmt.Sprintf("%s invited you to %s", inviterName, project.Name),
		Link:      link,
		ProjectID: &projectID,
		EmailData: map[string]any{
			"project_name": project.Name,
			"inviter_name": inviterName,
			"project_link": defaultDispatcher.AppURL + link,
			"role":         "team member",
		},
	})
}

// TaskAssigned notifies a user about a task assigned to them.
func TaskAssigned(userID uint, task models.Task, project models.Project) {
	projectID := project.ID
	taskID := task.ID
	link := fmt.Sprintf("/projects/%d/tasks?task=%d", project.ID, task.ID)

	dueDate := "No due date"
	if task.DueDate != nil {
		dueDate = task.DueDate.Format("2006-01-02")
	}

	description := task.Description
	if description == "" {
		description = "No description provided"
	}

	Go([]uint{userID}, Payload{
		Type:      types.NotifyTaskAssigned,
		Title:     "New Task Assigned",
		Message:   fmt.Sprintf("You've been assigned: %s", task.Title),
		Link:      link,
		ProjectID: &projectID,
		TaskID:    &taskID,
		EmailData: map[string]any{
			"task_title":       task.Title,
			"task_description": description,
			"project_name":     project.Name,
			"due_date":         dueDate,
			"priority":         task.Priority,
			"task_link":        defaultDispatcher.AppURL + link,
		},
	})
}

// ProjectUpdated notifies project members about a project-level change.
func ProjectUpdated(memberIDs []uint, project models.Project, updateMessage string) {
	projectID := project.ID
	link := fmt.Sprintf("/projects/%d", project.ID)

	Go(memberIDs, Payload{
		Type:      types.NotifyProjectUpdated,
		Title:     "Project Update",
		Message:   fmt.Sprintf("%s: %s", project.Name, updateMessage),
		Link:      link,
		ProjectID: &projectID,
		EmailData: map[string]any{
			"project_name":   project.Name,
			"update_message": updateMessage,
			"project_link":   defaultDispatcher.AppURL + link,
		},
	})
}

// TaskUpdated notifies members about a task change. No email template is
// registered for this type, so it stays in-app and push only.
func TaskUpdated(memberIDs []uint, task models.Task, project models.Project, updateMessage string) {
	projectID := project.ID
	taskID := task.ID

	Go(memberIDs, Payload{
		Type:      types.NotifyTaskUpdated,
		Title:     "Task Updated",
		Message:   fmt.Sprintf("%s: %s", task.Title, updateMessage),
		Link:      fmt.Sprintf("/projects/%d/tasks?task=%d", project.ID, task.ID),
		ProjectID: &projectID,
		TaskID:    &taskID,
	})
}

// DeadlineReminder notifies an assignee about an upcoming task due date.
func DeadlineReminder(userID uint, task models.Task, project models.Project, daysRemaining int) {
	projectID := project.ID
	taskID := task.ID
	link := fmt.Sprintf("/projects/%d/tasks?task=%d", project.ID, task.ID)

	dueDate := ""
	if task.DueDate != nil {
		dueDate = task.DueDate.Format("2006-01-02")
	}

	Go([]uint{userID}, Payload{
		Type:      types.NotifyDeadlineReminder,
		Title:     "Task Deadline Reminder",
		Message:   fmt.Sprintf("%s is due in %d days", task.Title, daysRemaining),
		Link:      link,
		ProjectID: &projectID,
		TaskID:    &taskID,
		EmailData: map[string]any{
			"task_title":     task.Title,
			"project_name":   project.Name,
			"due_date":       dueDate,
			"days_remaining": daysRemaining,
			"task_link":      defaultDispatcher.AppURL + link,
		},
	})
}
