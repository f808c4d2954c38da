package email

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/phrazzld/tasknotify/internal/domain"
)

// DueDateLayout formats due dates in reminder emails.
const DueDateLayout = "Jan 02, 2006 at 03:04 PM"

// ErrMissingDueDate is returned when rendering a reminder for a task without a due date.
var ErrMissingDueDate = errors.New("task has no due date")

var priorityColors = map[domain.Priority]string{
	domain.PriorityHigh:   "#dc3545",
	domain.PriorityMedium: "#ffc107",
	domain.PriorityLow:    "#28a745",
}

const defaultPriorityColor = "#6c757d"

// PriorityColor returns the badge colour for a priority.
func PriorityColor(p domain.Priority) string {
	if c, ok := priorityColors[p]; ok {
		return c
	}
	return defaultPriorityColor
}

// Message is a rendered email ready for MIME composition.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type reminderData struct {
	Title         string
	Priority      string
	PriorityColor string
	DueDate       string
	TaskURL       string
}

const reminderHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; padding: 24px;">
    <h2 style="margin-top: 0; color: #333333;">⏰ Task Reminder</h2>
    <p style="font-size: 18px; font-weight: bold; color: #333333;">{{.Title}}</p>
    <p>
      <span style="display: inline-block; padding: 4px 10px; border-radius: 12px; color: #ffffff; background-color: {{.PriorityColor}};">{{.Priority}}</span>
    </p>
    <p style="color: #555555;">Due: {{.DueDate}}</p>
    <p>
      <a href="{{.TaskURL}}" style="display: inline-block; padding: 10px 20px; background-color: #007bff; color: #ffffff; text-decoration: none; border-radius: 4px;">View Task</a>
    </p>
    <p style="font-size: 12px; color: #999999;">You are receiving this because notifications are enabled for this task.</p>
  </div>
</body>
</html>
`

const reminderText = `Task Reminder

{{.Title}}
Priority: {{.Priority}}
Due: {{.DueDate}}

View task: {{.TaskURL}}

You are receiving this because notifications are enabled for this task.
`

// Renderer turns tasks into reminder messages.
type Renderer struct {
	frontendURL string
	location    *time.Location
	html        *htmltemplate.Template
	text        *texttemplate.Template
}

// NewRenderer parses the reminder templates. A nil location means UTC.
func NewRenderer(frontendURL string, location *time.Location) (*Renderer, error) {
	if location == nil {
		location = time.UTC
	}

	html, err := htmltemplate.New("reminder.html").Parse(reminderHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	text, err := texttemplate.New("reminder.txt").Parse(reminderText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}

	return &Renderer{
		frontendURL: strings.TrimRight(frontendURL, "/"),
		location:    location,
		html:        html,
		text:        text,
	}, nil
}

// TaskURL returns the deep link that opens the task in the web client.
func (r *Renderer) TaskURL(taskID int64) string {
	return r.frontendURL + "/?taskId=" + strconv.FormatInt(taskID, 10)
}

// Render builds the reminder for a task.
func (r *Renderer) Render(task domain.Task) (Message, error) {
	if task.DueAt == nil {
		return Message{}, fmt.Errorf("render task %d: %w", task.ID, ErrMissingDueDate)
	}

	priority := task.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	data := reminderData{
		Title:         task.Title,
		Priority:      string(priority),
		PriorityColor: PriorityColor(priority),
		DueDate:       task.DueAt.In(r.location).Format(DueDateLayout),
		TaskURL:       r.TaskURL(task.ID),
	}

	var html, text bytes.Buffer
	if err := r.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render html body: %w", err)
	}
	if err := r.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("failed to render text body: %w", err)
	}

	return Message{
		Subject: task.ReminderTitle(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// RenderTest builds the fixed message used to verify the SMTP configuration.
func (r *Renderer) RenderTest(now time.Time) Message {
	sent := now.In(r.location).Format(DueDateLayout)
	return Message{
		Subject: "Test Email",
		Text:    "This is a test email from the task notification service.\nSent: " + sent + "\n",
		HTML: "<!DOCTYPE html><html><body><h2>Test Email</h2>" +
			"<p>This is a test email from the task notification service.</p>" +
			"<p>Sent: " + htmltemplate.HTMLEscapeString(sent) + "</p></body></html>",
	}
}
