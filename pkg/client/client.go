// Package client is the Go counterpart of the web client's data layer: a
// typed HTTP client for the sitecrew API plus a session-scoped state store
// that mirrors server resources and reconciles them after each mutation.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError is any non-2xx response, carrying the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type Profile struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
}

type Member struct {
	ID         uint      `json:"id"`
	Role       string    `json:"role"`
	AssignedAt time.Time `json:"assigned_at"`
	User       Profile   `json:"user"`
}

type Project struct {
	ID               uint       `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	Address          string     `json:"address"`
	Budget           *float64   `json:"budget"`
	StartDate        *time.Time `json:"start_date"`
	EstimatedEndDate *time.Time `json:"estimated_end_date"`
	ActualEndDate    *time.Time `json:"actual_end_date"`
	Status           string     `json:"status"`
	CreatedBy        uint       `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	Members          []Member   `json:"members"`
}

type Task struct {
	ID             uint       `json:"id"`
	ProjectID      uint       `json:"project_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	AssignedTo     *uint      `json:"assigned_to"`
	DueDate        *time.Time `json:"due_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
	ActualHours    *float64   `json:"actual_hours"`
	DependsOn      *uint      `json:"depends_on"`
	Location       string     `json:"location"`
	CreatedBy      uint       `json:"created_by"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Notification struct {
	ID        uint      `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	ProjectID *uint     `json:"project_id"`
	TaskID    *uint     `json:"task_id"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Client) do(method, path string, body any, out any) error {
	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

type LoginResponse struct {
	Profile Profile `json:"profile"`
	Token   string  `json:"token"`
}

func (c *Client) Login(email, password string) (*LoginResponse, error) {
	var out LoginResponse

	err := c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)

	if err != nil {
		return nil, err
	}

	c.Token = out.Token
	return &out, nil
}

func (c *Client) ListProjects() ([]Project, error) {
	var out struct {
		Projects []Project `json:"projects"`
	}

	if err := c.do(http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}

	return out.Projects, nil
}

func (c *Client) CreateProject(fields map[string]any) (*Project, error) {
	var out struct {
		Project Project `json:"project"`
	}

	if err := c.do(http.MethodPost, "/api/projects", fields, &out); err != nil {
		return nil, err
	}

	return &out.Project, nil
}

func (c *Client) UpdateProject(projectID uint, fields map[string]any) (*Project, error) {
	var out struct {
		Project Project `json:"project"`
	}

	if err := c.do(http.MethodPatch, fmt.Sprintf("/api/projects/%d", projectID), fields, &out); err != nil {
		return nil, err
	}

	return &out.Project, nil
}

func (c *Client) DeleteProject(projectID uint) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/projects/%d", projectID), nil, nil)
}

func (c *Client) AddMember(projectID uint, email, role string) (*Member, error) {
	var out struct {
		Member Member `json:"member"`
	}

	err := c.do(http.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), map[string]string{
		"email": email,
		"role":  role,
	}, &out)

	if err != nil {
		return nil, err
	}

	return &out.Member, nil
}

func (c *Client) RemoveMember(projectID, memberID uint) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/projects/%d/members/%d", projectID, memberID), nil, nil)
}

func (c *Client) ListTasks(projectID uint) ([]Task, error) {
	var out struct {
		Tasks []Task `json:"tasks"`
	}

	if err := c.do(http.MethodGet, fmt.Sprintf("/api/projects/%d/tasks", projectID), nil, &out); err != nil {
		return nil, err
	}

	return out.Tasks, nil
}

func (c *Client) CreateTask(projectID uint, fields map[string]any) (*Task, error) {
	var out struct {
		Task Task `json:"task"`
	}

	if err := c.do(http.MethodPost, fmt.Sprintf("/api/projects/%d/tasks", projectID), fields, &out); err != nil {
		return nil, err
	}

	return &out.Task, nil
}

func (c *Client) UpdateTask(projectID, taskID uint, updates map[string]any) (*Task, error) {
	var out struct {
		Task Task `json:"task"`
	}

	if err := c.do(http.MethodPatch, fmt.Sprintf("/api/projects/%d/tasks/%d", projectID, taskID), updates, &out); err != nil {
		return nil, err
	}

	return &out.Task, nil
}

func (c *Client) DeleteTask(projectID, taskID uint) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/projects/%d/tasks/%d", projectID, taskID), nil, nil)
}

func (c *Client) ListNotifications() ([]Notification, error) {
	var out struct {
		Notifications []Notification `json:"notifications"`
	}

	if err := c.do(http.MethodGet, "/api/notifications", nil, &out); err != nil {
		return nil, err
	}

	return out.Notifications, nil
}

func (c *Client) UnreadCount() (int, error) {
	var out struct {
		UnreadCount int `json:"unread_count"`
	}

	if err := c.do(http.MethodGet, "/api/notifications/unread_count", nil, &out); err != nil {
		return 0, err
	}

	return out.UnreadCount, nil
}

func (c *Client) MarkNotificationRead(notificationID uint) (*Notification, error) {
	var out struct {
		Notification Notification `json:"notification"`
	}

	if err := c.do(http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", notificationID), nil, &out); err != nil {
		return nil, err
	}

	return &out.Notification, nil
}

func (c *Client) MarkAllNotificationsRead() error {
	return c.do(http.MethodPost, "/api/notifications/read_all", nil, nil)
}

func (c *Client) DeleteNotification(notificationID uint) error {
	return c.do(http.MethodDelete, fmt.Sprintf("/api/notifications/%d", notificationID), nil, nil)
}
