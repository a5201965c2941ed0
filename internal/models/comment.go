package models

import "time"

// Comment is a note left on a ticket by an authenticated user.
// CreatedDate is assigned by the store and never changes.
type Comment struct {
	ID          int64     `json:"id"`
	TicketID    int64     `json:"ticket"`
	AuthorID    int64     `json:"-"`
	Author      string    `json:"author"`
	Body        string    `json:"body"`
	CreatedDate time.Time `json:"created_date"`
}
