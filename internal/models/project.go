package models

// Project mirrors an issue-tracker project. JiraKey is the tracker's own key
// and is unique across the store.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	JiraKey     string    `json:"jira_key"`
	Description *string   `json:"description"`
	Tickets     []*Ticket `json:"tickets"`
}
