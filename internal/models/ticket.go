package models

import "time"

// DateLayout is the wire and storage format of Ticket.DueDate.
const DateLayout = "2006-01-02"

// Ticket mirrors a single tracker issue. JiraID is the external identifier;
// ID is the storage key used by update and delete.
type Ticket struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project"`
	JiraID      string     `json:"jira_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Assignee    *string    `json:"assignee"`
	Reporter    *string    `json:"reporter"`
	CreatedDate time.Time  `json:"created_date"`
	UpdatedDate time.Time  `json:"updated_date"`
	DueDate     *string    `json:"due_date"`
	Comments    []*Comment `json:"comments"`
}
