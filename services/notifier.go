package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"task-management/microservices/tasks-service/logging"
)

// Notifier pushes assignment notifications to the external notifications
// collaborator through a circuit breaker. A nil Notifier or an empty URL
// disables notifications entirely.
type Notifier struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	url     string
}

func NewNotifier(client *http.Client, breaker *gobreaker.CircuitBreaker, url string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{client: client, breaker: breaker, url: url}
}

type assignmentNotification struct {
	Usernames []string `json:"usernames"`
	TaskID    int64    `json:"task_id"`
	TaskTitle string   `json:"task_title"`
	Message   string   `json:"message"`
}

// NotifyAssignment posts the current assignee set for a task. The call runs
// through the breaker so a flapping notifications service cannot slow down
// mutations for long.
func (n *Notifier) NotifyAssignment(usernames []string, taskID int64, taskTitle string) error {
	payload := assignmentNotification{
		Usernames: usernames,
		TaskID:    taskID,
		TaskTitle: taskTitle,
		Message:   fmt.Sprintf("You have been assigned to task: %s", taskTitle),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("notifications service returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	logging.Logger.Infof("Event ID: NOTIFICATION_SENT, Description: Assignment notification sent for task %d to %d users", taskID, len(usernames))
	return nil
}
