package client

import "sync"

// Store holds the session's view of server state. Mutations go through the
// API first and only touch local state once the server accepts them, so a
// failed call leaves the store exactly as it was. MoveTask is the one
// exception: the status change is applied optimistically and rolled back or
// reconciled against the server response.
type Store struct {
	mu sync.Mutex

	client *Client

	projects      []Project
	tasks         map[uint][]Task
	notifications []Notification
	unread        int
}

func NewStore(c *Client) *Store {
	return &Store{
		client: c,
		tasks:  make(map[uint][]Task),
	}
}

// Refresh reloads projects and the unread counter from the server.
func (s *Store) Refresh() error {
	projects, err := s.client.ListProjects()
	if err != nil {
		return err
	}

	unread, err := s.client.UnreadCount()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects = projects
	s.unread = unread
	return nil
}

func (s *Store) Projects() []Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Project, len(s.projects))
	copy(out, s.projects)
	return out
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Store) CreateProject(fields map[string]any) (*Project, error) {
	project, err := s.client.CreateProject(fields)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects = append([]Project{*project}, s.projects...)
	return project, nil
}

func (s *Store) UpdateProject(projectID uint, fields map[string]any) (*Project, error) {
	project, err := s.client.UpdateProject(projectID, fields)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.projects {
		if s.projects[i].ID == project.ID {
			s.projects[i] = *project
			break
		}
	}
	return project, nil
}

func (s *Store) DeleteProject(projectID uint) error {
	if err := s.client.DeleteProject(projectID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.projects[:0]
	for _, p := range s.projects {
		if p.ID != projectID {
			kept = append(kept, p)
		}
	}
	s.projects = kept
	delete(s.tasks, projectID)
	return nil
}

// LoadTasks fetches and caches the task list for a project.
func (s *Store) LoadTasks(projectID uint) ([]Task, error) {
	tasks, err := s.client.ListTasks(projectID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[projectID] = tasks

	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out, nil
}

func (s *Store) Tasks(projectID uint) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.tasks[projectID]
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

func (s *Store) CreateTask(projectID uint, fields map[string]any) (*Task, error) {
	task, err := s.client.CreateTask(projectID, fields)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[projectID] = append([]Task{*task}, s.tasks[projectID]...)
	return task, nil
}

func (s *Store) UpdateTask(projectID, taskID uint, updates map[string]any) (*Task, error) {
	task, err := s.client.UpdateTask(projectID, taskID, updates)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceTask(projectID, *task)
	return task, nil
}

func (s *Store) DeleteTask(projectID, taskID uint) error {
	if err := s.client.DeleteTask(projectID, taskID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tasks[projectID][:0]
	for _, t := range s.tasks[projectID] {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	s.tasks[projectID] = kept
	return nil
}

// MoveTask changes a task's status optimistically: the local copy flips
// immediately so a board UI can re-render without waiting on the network,
// then the server response replaces it. On error the previous copy is
// restored.
func (s *Store) MoveTask(projectID, taskID uint, status string) (*Task, error) {
	s.mu.Lock()
	var previous *Task
	for i := range s.tasks[projectID] {
		if s.tasks[projectID][i].ID == taskID {
			saved := s.tasks[projectID][i]
			previous = &saved
			s.tasks[projectID][i].Status = status
			break
		}
	}
	s.mu.Unlock()

	task, err := s.client.UpdateTask(projectID, taskID, map[string]any{"status": status})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if previous != nil {
			s.replaceTask(projectID, *previous)
		}
		return nil, err
	}

	s.replaceTask(projectID, *task)
	return task, nil
}

func (s *Store) replaceTask(projectID uint, task Task) {
	for i := range s.tasks[projectID] {
		if s.tasks[projectID][i].ID == task.ID {
			s.tasks[projectID][i] = task
			return
		}
	}
}

// LoadNotifications fetches the notification feed and recomputes the
// unread counter from it.
func (s *Store) LoadNotifications() ([]Notification, error) {
	notifications, err := s.client.ListNotifications()
	if err != nil {
		return nil, err
	}

	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = notifications
	s.unread = unread

	out := make([]Notification, len(notifications))
	copy(out, notifications)
	return out, nil
}

func (s *Store) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

func (s *Store) MarkNotificationRead(notificationID uint) error {
	updated, err := s.client.MarkNotificationRead(notificationID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == updated.ID {
			if !s.notifications[i].Read && s.unread > 0 {
				s.unread--
			}
			s.notifications[i] = *updated
			break
		}
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead() error {
	if err := s.client.MarkAllNotificationsRead(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	s.unread = 0
	return nil
}

func (s *Store) DeleteNotification(notificationID uint) error {
	if err := s.client.DeleteNotification(notificationID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.ID == notificationID {
			if !n.Read && s.unread > 0 {
				s.unread--
			}
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
	return nil
}

// Close drops all cached state. The store must not be used afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects = nil
	s.tasks = nil
	s.notifications = nil
	s.unread = 0
}
