package types

import (
	"os"
	"strings"
)

const (
	ContextUserKey    = "user"
	ContextProfileKey = "profile"
)

// Org-wide profile roles.
const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project_manager"
	RoleContractor     = "contractor"
	RoleWorker         = "worker"
)

// Per-project membership roles.
const (
	MemberOwner      = "owner"
	MemberManager    = "manager"
	MemberContractor = "contractor"
	MemberWorker     = "worker"
	MemberViewer     = "viewer"
)

// Project statuses.
const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on_hold"
	ProjectCompleted = "completed"
	ProjectCancelled = "cancelled"
)

// Task statuses and priorities.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification types.
const (
	NotifyProjectInvite    = "project_invite"
	NotifyTaskAssigned     = "task_assigned"
	NotifyProjectUpdated   = "project_updated"
	NotifyTaskUpdated      = "task_updated"
	NotifyDeadlineReminder = "deadline_reminder"
)

func ValidProfileRole(role string) bool {
	switch role {
	case RoleAdmin, RoleProjectManager, RoleContractor, RoleWorker:
		return true
	}
	return false
}

func ValidMemberRole(role string) bool {
	switch role {
	case MemberOwner, MemberManager, MemberContractor, MemberWorker, MemberViewer:
		return true
	}
	return false
}

func ValidProjectStatus(status string) bool {
	switch status {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = initAllowedOrigins()
)

func initAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		envOrigins := strings.Split(allowedOrigins, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}
