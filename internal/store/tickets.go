package store

import (
	"context"
	"fmt"
	"time"

	"github.com/joescharf/vibejira/internal/models"
)

const ticketColumns = `id, project_id, jira_id, title, description, status, priority, assignee, reporter, created_date, updated_date, due_date`

func scanTicket(row interface{ Scan(...any) error }) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := row.Scan(&t.ID, &t.ProjectID, &t.JiraID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.Assignee, &t.Reporter, &t.CreatedDate, &t.UpdatedDate, &t.DueDate)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// queryTickets runs a ticket SELECT and attaches each ticket's comments.
func (s *SQLStore) queryTickets(ctx context.Context, query string, args ...any) ([]*models.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}

	tickets := []*models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	if err := s.attachComments(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *SQLStore) getTicketWhere(ctx context.Context, column string, key any) (*models.Ticket, error) {
	tickets, err := s.queryTickets(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE `+column+` = ?`, key)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("ticket %v: %w", key, ErrNotFound)
	}
	return tickets[0], nil
}

func (s *SQLStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO tickets (project_id, jira_id, title, description, status, priority, assignee, reporter, created_date, updated_date, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		t.ProjectID, t.JiraID, t.Title, t.Description, t.Status, t.Priority,
		t.Assignee, t.Reporter, t.CreatedDate.UTC(), t.UpdatedDate.UTC(), t.DueDate,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create ticket: %w", classify(err))
	}
	t.Comments = []*models.Comment{}
	return nil
}

func (s *SQLStore) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	return s.getTicketWhere(ctx, "id", id)
}

func (s *SQLStore) GetTicketByJiraID(ctx context.Context, jiraID string) (*models.Ticket, error) {
	return s.getTicketWhere(ctx, "jira_id", jiraID)
}

func (s *SQLStore) ListTickets(ctx context.Context, filter TicketListFilter) ([]*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	var args []any
	if filter.ProjectID != 0 {
		query += ` WHERE project_id = ?`
		args = append(args, filter.ProjectID)
	}
	query += ` ORDER BY id`
	return s.queryTickets(ctx, query, args...)
}

func (s *SQLStore) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	result, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE tickets SET project_id = ?, jira_id = ?, title = ?, description = ?, status = ?, priority = ?,
		assignee = ?, reporter = ?, created_date = ?, updated_date = ?, due_date = ?
		WHERE id = ?`),
		t.ProjectID, t.JiraID, t.Title, t.Description, t.Status, t.Priority,
		t.Assignee, t.Reporter, t.CreatedDate.UTC(), t.UpdatedDate.UTC(), t.DueDate, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", classify(err))
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("ticket %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) DeleteTicket(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM tickets WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertTicket creates the ticket keyed by jiraID or updates it in place.
// On insert, absent text fields default to "" and absent timestamps to now.
// On update, absent fields keep their stored values. The boolean reports
// whether a new row was created.
func (s *SQLStore) UpsertTicket(ctx context.Context, jiraID string, projectID int64, f TicketFields) (*models.Ticket, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO tickets (project_id, jira_id, title, description, status, priority, assignee, reporter, created_date, updated_date, due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (jira_id) DO NOTHING`),
		projectID, jiraID, stringOr(f.Title), f.Description, stringOr(f.Status), stringOr(f.Priority),
		f.Assignee, f.Reporter, timeOr(f.CreatedDate, now), timeOr(f.UpdatedDate, now), f.DueDate,
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert ticket: %w", classify(err))
	}
	n, _ := result.RowsAffected()
	created := n == 1

	if !created {
		_, err = tx.ExecContext(ctx, s.rebind(
			`UPDATE tickets SET
				project_id = ?,
				title = COALESCE(?, title),
				description = COALESCE(?, description),
				status = COALESCE(?, status),
				priority = COALESCE(?, priority),
				assignee = COALESCE(?, assignee),
				reporter = COALESCE(?, reporter),
				created_date = COALESCE(?, created_date),
				updated_date = COALESCE(?, updated_date),
				due_date = COALESCE(?, due_date)
			WHERE jira_id = ?`),
			projectID, f.Title, f.Description, f.Status, f.Priority, f.Assignee, f.Reporter,
			utcPtr(f.CreatedDate), utcPtr(f.UpdatedDate), f.DueDate, jiraID,
		)
		if err != nil {
			return nil, false, fmt.Errorf("upsert ticket: %w", classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}

	t, err := s.GetTicketByJiraID(ctx, jiraID)
	if err != nil {
		return nil, false, err
	}
	return t, created, nil
}

func stringOr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func timeOr(v *time.Time, fallback time.Time) time.Time {
	if v == nil {
		return fallback
	}
	return v.UTC()
}

func utcPtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	u := v.UTC()
	return &u
}

// attachComments loads the comments of every given ticket in one query.
func (s *SQLStore) attachComments(ctx context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Ticket, len(tickets))
	ids := make([]int64, len(tickets))
	for i, t := range tickets {
		t.Comments = []*models.Comment{}
		byID[t.ID] = t
		ids[i] = t.ID
	}

	placeholders, args := inPlaceholders(ids)
	comments, err := s.queryComments(ctx, commentSelect+` WHERE c.ticket_id IN (`+placeholders+`) ORDER BY c.id`, args...)
	if err != nil {
		return err
	}
	for _, c := range comments {
		if t, ok := byID[c.TicketID]; ok {
			t.Comments = append(t.Comments, c)
		}
	}
	return nil
}
