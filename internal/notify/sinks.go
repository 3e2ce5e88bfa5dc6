package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sitecrew-dev/sitecrew/internal/types"
)

// EmailSink delivers templated notification emails through an HTTP mail API.
// A sink with an empty URL is disabled and silently accepts everything.
type EmailSink struct {
	URL       string
	APIKey    string
	From      string
	Templates map[string]string // notification type -> template id
	Client    *http.Client
}

// PushSink publishes web push notifications for a set of user ids.
type PushSink struct {
	URL       string
	SecretKey string
	Client    *http.Client
}

type emailRequest struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	TemplateID string         `json:"template_id"`
	Data       map[string]any `json:"dynamic_template_data"`
}

type pushRequest struct {
	Users        []string         `json:"users"`
	Notification pushNotification `json:"notification"`
}

type pushNotification struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	DeepLink string         `json:"deep_link"`
	Data     map[string]any `json:"data,omitempty"`
}

func NewEmailSink(url, apiKey, from string, timeout time.Duration) *EmailSink {
	return &EmailSink{
		URL:    url,
		APIKey: apiKey,
		From:   from,
		Templates: map[string]string{
			types.NotifyProjectInvite:    "project_invite",
			types.NotifyTaskAssigned:     "task_assigned",
			types.NotifyProjectUpdated:   "project_updated",
			types.NotifyDeadlineReminder: "deadline_reminder",
		},
		Client: &http.Client{Timeout: timeout},
	}
}

func NewPushSink(url, secretKey string, timeout time.Duration) *PushSink {
	return &PushSink{
		URL:       url,
		SecretKey: secretKey,
		Client:    &http.Client{Timeout: timeout},
	}
}

// TemplateFor returns the template id for a notification type, or empty when
// no template is configured. Types without a template get no email at all.
func (s *EmailSink) TemplateFor(notificationType string) string {
	if s == nil {
		return ""
	}
	return s.Templates[notificationType]
}

func (s *EmailSink) Send(to, templateID string, data map[string]any) error {
	if s == nil || s.URL == "" {
		return nil
	}

	body, err := json.Marshal(emailRequest{
		From:       s.From,
		To:         to,
		TemplateID: templateID,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.URL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *PushSink) Publish(userIDs []string, title, message, link string, data map[string]any) error {
	if s == nil || s.URL == "" || len(userIDs) == 0 {
		return nil
	}

	body, err := json.Marshal(pushRequest{
		Users: userIDs,
		Notification: pushNotification{
			Title:    title,
			Body:     message,
			DeepLink: link,
			Data:     data,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.URL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.SecretKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("push API returned status %d", resp.StatusCode)
	}

	return nil
}
