package store

import (
	"context"
	"errors"
	"time"

	"github.com/joescharf/vibejira/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a unique key.
	ErrConflict = errors.New("unique constraint violated")
	// ErrInvalidReference is returned when a write points at a missing parent row.
	ErrInvalidReference = errors.New("referenced row does not exist")
)

// TicketListFilter specifies filters for listing tickets.
type TicketListFilter struct {
	ProjectID int64
}

// CommentListFilter specifies filters for listing comments.
type CommentListFilter struct {
	TicketID int64
}

// TicketFields carries the values an upsert writes. A nil field is absent:
// it never overwrites a stored value on update.
type TicketFields struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Assignee    *string
	Reporter    *string
	CreatedDate *time.Time
	UpdatedDate *time.Time
	DueDate     *string
}

// Store defines the persistence interface for vibejira.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	GetProjectByJiraKey(ctx context.Context, jiraKey string) (*models.Project, error)
	GetOrCreateProject(ctx context.Context, jiraKey, name string) (*models.Project, bool, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id int64) error

	// Tickets
	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	GetTicketByJiraID(ctx context.Context, jiraID string) (*models.Ticket, error)
	ListTickets(ctx context.Context, filter TicketListFilter) ([]*models.Ticket, error)
	UpdateTicket(ctx context.Context, t *models.Ticket) error
	DeleteTicket(ctx context.Context, id int64) error
	UpsertTicket(ctx context.Context, jiraID string, projectID int64, f TicketFields) (*models.Ticket, bool, error)

	// Comments
	CreateComment(ctx context.Context, c *models.Comment, author *models.User) error
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	ListComments(ctx context.Context, filter CommentListFilter) ([]*models.Comment, error)
	UpdateComment(ctx context.Context, c *models.Comment) error
	DeleteComment(ctx context.Context, id int64) error

	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
