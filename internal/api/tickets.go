package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joescharf/vibejira/internal/models"
	"github.com/joescharf/vibejira/internal/resolver"
	"github.com/joescharf/vibejira/internal/store"
)

type ticketInput struct {
	Project     *int64     `json:"project" binding:"required"`
	JiraID      *string    `json:"jira_id" binding:"required,min=1,max=100"`
	Title       *string    `json:"title" binding:"required,min=1,max=255"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" binding:"required,min=1,max=100"`
	Priority    *string    `json:"priority" binding:"required,min=1,max=100"`
	Assignee    *string    `json:"assignee" binding:"omitempty,max=255"`
	Reporter    *string    `json:"reporter" binding:"omitempty,max=255"`
	CreatedDate *time.Time `json:"created_date" binding:"required"`
	UpdatedDate *time.Time `json:"updated_date" binding:"required"`
	DueDate     *string    `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
}

type ticketPatch struct {
	Project     *int64     `json:"project" binding:"omitempty"`
	JiraID      *string    `json:"jira_id" binding:"omitempty,min=1,max=100"`
	Title       *string    `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" binding:"omitempty,min=1,max=100"`
	Priority    *string    `json:"priority" binding:"omitempty,min=1,max=100"`
	Assignee    *string    `json:"assignee" binding:"omitempty,max=255"`
	Reporter    *string    `json:"reporter" binding:"omitempty,max=255"`
	CreatedDate *time.Time `json:"created_date" binding:"omitempty"`
	UpdatedDate *time.Time `json:"updated_date" binding:"omitempty"`
	DueDate     *string    `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
}

func (in ticketPatch) apply(t *models.Ticket) {
	if in.Project != nil {
		t.ProjectID = *in.Project
	}
	if in.JiraID != nil {
		t.JiraID = *in.JiraID
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.Assignee != nil {
		t.Assignee = in.Assignee
	}
	if in.Reporter != nil {
		t.Reporter = in.Reporter
	}
	if in.CreatedDate != nil {
		t.CreatedDate = in.CreatedDate.UTC()
	}
	if in.UpdatedDate != nil {
		t.UpdatedDate = in.UpdatedDate.UTC()
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
}

func (s *Server) listTickets(c *gin.Context) {
	projectID, ok := queryID(c, "project")
	if !ok {
		return
	}
	tickets, err := s.store.ListTickets(c.Request.Context(), store.TicketListFilter{ProjectID: projectID})
	if err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, tickets)
}

func (s *Server) createTicket(c *gin.Context) {
	var in ticketInput
	if !bind(c, &in) {
		return
	}
	t := &models.Ticket{}
	ticketPatch(in).apply(t)
	if err := s.store.CreateTicket(c.Request.Context(), t); err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

// retrieveTicket looks the ticket up by its JIRA key, fetching it from JIRA
// when there is no local copy. 201 means the fetch created the row.
func (s *Server) retrieveTicket(c *gin.Context) {
	t, created, err := s.resolver.Resolve(c.Request.Context(), c.Param("key"))
	if err != nil {
		var rerr *resolver.Error
		if !errors.As(err, &rerr) {
			writeError(c, http.StatusInternalServerError, err.Error())
			return
		}
		body := gin.H{"error": rerr.Message}
		if rerr.RemoteError != "" {
			body["jira_error"] = rerr.RemoteError
		}
		c.AbortWithStatusJSON(rerr.Status, body)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(c, status, t)
}

func (s *Server) updateTicket(c *gin.Context) {
	s.saveTicket(c, func() (ticketPatch, bool) {
		var in ticketInput
		if !bind(c, &in) {
			return ticketPatch{}, false
		}
		return ticketPatch(in), true
	})
}

func (s *Server) patchTicket(c *gin.Context) {
	s.saveTicket(c, func() (ticketPatch, bool) {
		var in ticketPatch
		ok := bind(c, &in)
		return in, ok
	})
}

// saveTicket updates by internal id. Retrieval is the only ticket route keyed
// by the JIRA id.
func (s *Server) saveTicket(c *gin.Context, decode func() (ticketPatch, bool)) {
	id, ok := pathID(c, "key")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	patch, ok := decode()
	if !ok {
		return
	}
	patch.apply(t)
	if err := s.store.UpdateTicket(ctx, t); err != nil {
		s.storeError(c, err)
		return
	}
	t, err = s.store.GetTicket(ctx, id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (s *Server) deleteTicket(c *gin.Context) {
	id, ok := pathID(c, "key")
	if !ok {
		return
	}
	if err := s.store.DeleteTicket(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
