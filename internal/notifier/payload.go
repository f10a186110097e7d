package notifier

import (
	"encoding/json"
	"fmt"
	"time"
)

// pushData is the data.url sub-object Service Worker consumers expect.
type pushData struct {
	URL string `json:"url"`
}

// pushPayload is the Web Push JSON body. Field set and naming are fixed
// by the deployed Service Worker consumers; changing them breaks existing
// clients.
type pushPayload struct {
	Title              string   `json:"title"`
	Body               string   `json:"body"`
	Icon               string   `json:"icon,omitempty"`
	Badge              string   `json:"badge,omitempty"`
	Tag                string   `json:"tag"`
	RequireInteraction bool     `json:"requireInteraction"`
	Data               pushData `json:"data"`
}

// buildPayload composes the reminder push body.
func buildPayload(taskID int64, title string, dueAt *time.Time) ([]byte, error) {
	body := fmt.Sprintf("Reminder: %s", title)
	if dueAt != nil {
		body = fmt.Sprintf("%s\nDue: %s", body, dueAt.UTC().Format(time.RFC3339))
	}

	p := pushPayload{
		Title:              "Task Reminder",
		Body:               body,
		Icon:               "/icons/reminder.png",
		Badge:              "/icons/badge.png",
		Tag:                fmt.Sprintf("reminder-%d", taskID),
		RequireInteraction: true,
		Data:               pushData{URL: fmt.Sprintf("/tasks?highlight=%d", taskID)},
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("notifier: marshal push payload: %w", err)
	}
	return b, nil
}
