package store

import (
	"context"
	"fmt"
	"time"

	"github.com/joescharf/vibejira/internal/models"
)

const commentSelect = `SELECT c.id, c.ticket_id, c.author_id, u.username, c.body, c.created_date
	FROM comments c JOIN users u ON u.id = c.author_id`

func (s *SQLStore) queryComments(ctx context.Context, query string, args ...any) ([]*models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	comments := []*models.Comment{}
	for rows.Next() {
		c := &models.Comment{}
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Author, &c.Body, &c.CreatedDate); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CreateComment stores c authored by author. Any author already set on c is
// replaced, and CreatedDate is always assigned here.
func (s *SQLStore) CreateComment(ctx context.Context, c *models.Comment, author *models.User) error {
	if author == nil {
		return fmt.Errorf("create comment: author is required")
	}
	c.AuthorID = author.ID
	c.Author = author.Username
	c.CreatedDate = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO comments (ticket_id, author_id, body, created_date) VALUES (?, ?, ?, ?) RETURNING id`),
		c.TicketID, c.AuthorID, c.Body, c.CreatedDate,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create comment: %w", classify(err))
	}
	return nil
}

func (s *SQLStore) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	comments, err := s.queryComments(ctx, commentSelect+` WHERE c.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return comments[0], nil
}

func (s *SQLStore) ListComments(ctx context.Context, filter CommentListFilter) ([]*models.Comment, error) {
	query := commentSelect
	var args []any
	if filter.TicketID != 0 {
		query += ` WHERE c.ticket_id = ?`
		args = append(args, filter.TicketID)
	}
	query += ` ORDER BY c.id`
	return s.queryComments(ctx, query, args...)
}

// UpdateComment rewrites the body only. Ticket, author and creation time are fixed.
func (s *SQLStore) UpdateComment(ctx context.Context, c *models.Comment) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`UPDATE comments SET body = ? WHERE id = ?`), c.Body, c.ID)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("comment %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) DeleteComment(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM comments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return nil
}
