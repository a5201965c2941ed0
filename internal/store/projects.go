package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joescharf/vibejira/internal/models"
)

const projectColumns = `id, name, jira_key, description`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	p := &models.Project{}
	if err := row.Scan(&p.ID, &p.Name, &p.JiraKey, &p.Description); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLStore) CreateProject(ctx context.Context, p *models.Project) error {
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO projects (name, jira_key, description) VALUES (?, ?, ?) RETURNING id`),
		p.Name, p.JiraKey, p.Description,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create project: %w", classify(err))
	}
	p.Tickets = []*models.Ticket{}
	return nil
}

func (s *SQLStore) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if err := s.attachTickets(ctx, []*models.Project{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLStore) GetProjectByJiraKey(ctx context.Context, jiraKey string) (*models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+projectColumns+` FROM projects WHERE jira_key = ?`), jiraKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", jiraKey, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project by jira key: %w", err)
	}
	if err := s.attachTickets(ctx, []*models.Project{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// GetOrCreateProject returns the project keyed by jiraKey, creating it with
// name when absent. The insert is a no-op on conflict, so concurrent callers
// converge on the same row.
func (s *SQLStore) GetOrCreateProject(ctx context.Context, jiraKey, name string) (*models.Project, bool, error) {
	result, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO projects (name, jira_key) VALUES (?, ?) ON CONFLICT (jira_key) DO NOTHING`),
		name, jiraKey,
	)
	if err != nil {
		return nil, false, fmt.Errorf("get or create project: %w", classify(err))
	}
	n, _ := result.RowsAffected()

	p, err := s.GetProjectByJiraKey(ctx, jiraKey)
	if err != nil {
		return nil, false, err
	}
	return p, n == 1, nil
}

func (s *SQLStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []*models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachTickets(ctx, projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *SQLStore) UpdateProject(ctx context.Context, p *models.Project) error {
	result, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE projects SET name = ?, jira_key = ?, description = ? WHERE id = ?`),
		p.Name, p.JiraKey, p.Description, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", classify(err))
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) DeleteProject(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return nil
}

// attachTickets loads the tickets (with comments) of every given project.
func (s *SQLStore) attachTickets(ctx context.Context, projects []*models.Project) error {
	if len(projects) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Project, len(projects))
	ids := make([]int64, len(projects))
	for i, p := range projects {
		p.Tickets = []*models.Ticket{}
		byID[p.ID] = p
		ids[i] = p.ID
	}

	placeholders, args := inPlaceholders(ids)
	tickets, err := s.queryTickets(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE project_id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return err
	}
	for _, t := range tickets {
		if p, ok := byID[t.ProjectID]; ok {
			p.Tickets = append(p.Tickets, t)
		}
	}
	return nil
}
