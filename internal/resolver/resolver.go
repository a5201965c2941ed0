// Package resolver returns a ticket by its external id, reading through to
// the remote tracker when the local store has no copy.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joescharf/vibejira/internal/jira"
	"github.com/joescharf/vibejira/internal/models"
	"github.com/joescharf/vibejira/internal/store"
)

const (
	// MsgFetchFailed is the public message for a failed remote lookup.
	MsgFetchFailed = "Failed to fetch ticket from JIRA."
	// MsgNoProjectKey is returned when a remote issue names no project.
	MsgNoProjectKey = "Project key not found in JIRA data"
	// DefaultProjectName names projects created from issues without one.
	DefaultProjectName = "Unnamed Project"
)

// TicketStore is the part of store.Store the resolver needs.
type TicketStore interface {
	GetTicketByJiraID(ctx context.Context, jiraID string) (*models.Ticket, error)
	GetOrCreateProject(ctx context.Context, jiraKey, name string) (*models.Project, bool, error)
	UpsertTicket(ctx context.Context, jiraID string, projectID int64, f store.TicketFields) (*models.Ticket, bool, error)
}

// Error is a resolution failure with the HTTP status it maps to.
// RemoteError is set only when the remote tracker call failed.
type Error struct {
	Status      int
	Message     string
	RemoteError string
}

func (e *Error) Error() string {
	if e.RemoteError != "" {
		return fmt.Sprintf("%s %s", e.Message, e.RemoteError)
	}
	return e.Message
}

// Resolver implements local-first, remote-fallback ticket retrieval.
type Resolver struct {
	store   TicketStore
	fetcher jira.Fetcher
}

// New returns a Resolver reading from st and falling back to f.
func New(st TicketStore, f jira.Fetcher) *Resolver {
	return &Resolver{store: st, fetcher: f}
}

// Resolve returns the ticket with the given external id. The boolean is true
// when the ticket was fetched remotely and a new row was created. Every
// failure is an *Error.
func (r *Resolver) Resolve(ctx context.Context, jiraID string) (*models.Ticket, bool, error) {
	t, err := r.store.GetTicketByJiraID(ctx, jiraID)
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, internalError(err)
	}

	issue, err := r.fetcher.FetchIssue(ctx, jiraID)
	if err != nil {
		return nil, false, remoteError(err)
	}

	fields := issue.Fields
	if fields.Project == nil || fields.Project.Key == "" {
		return nil, false, &Error{Status: http.StatusBadRequest, Message: MsgNoProjectKey}
	}

	name := fields.Project.Name
	if name == "" {
		name = DefaultProjectName
	}
	project, projectCreated, err := r.store.GetOrCreateProject(ctx, fields.Project.Key, name)
	if err != nil {
		return nil, false, internalError(err)
	}
	if projectCreated {
		slog.Info("created project from JIRA", "jira_key", project.JiraKey, "name", project.Name)
	}

	t, created, err := r.store.UpsertTicket(ctx, jiraID, project.ID, MapFields(fields))
	if err != nil {
		return nil, false, internalError(err)
	}
	slog.Info("stored ticket from JIRA", "jira_id", jiraID, "created", created)
	return t, created, nil
}

// MapFields converts remote issue fields into upsert fields. Anything the
// remote payload omits stays nil.
func MapFields(f jira.IssueFields) store.TicketFields {
	var tf store.TicketFields
	tf.Title = f.Summary
	if desc, ok := f.DescriptionText(); ok {
		tf.Description = &desc
	}
	if f.Status != nil {
		tf.Status = &f.Status.Name
	}
	if f.Priority != nil {
		tf.Priority = &f.Priority.Name
	}
	if f.Assignee != nil {
		tf.Assignee = &f.Assignee.DisplayName
	}
	if f.Reporter != nil {
		tf.Reporter = &f.Reporter.DisplayName
	}
	if f.Created != nil {
		ts := time.Time(*f.Created)
		tf.CreatedDate = &ts
	}
	if f.Updated != nil {
		ts := time.Time(*f.Updated)
		tf.UpdatedDate = &ts
	}
	if f.Duedate != nil {
		due := time.Time(*f.Duedate).Format(models.DateLayout)
		tf.DueDate = &due
	}
	return tf
}

func remoteError(err error) *Error {
	out := &Error{Status: http.StatusNotFound, Message: MsgFetchFailed, RemoteError: err.Error()}
	var jerr *jira.Error
	// Only 4xx and 5xx remote statuses pass through.
	if errors.As(err, &jerr) && jerr.StatusCode >= http.StatusBadRequest {
		out.Status = jerr.StatusCode
	}
	slog.Warn("JIRA fetch failed", "status", out.Status, "error", out.RemoteError)
	return out
}

func internalError(err error) *Error {
	slog.Error("resolve ticket", "error", err)
	return &Error{Status: http.StatusInternalServerError, Message: err.Error()}
}
